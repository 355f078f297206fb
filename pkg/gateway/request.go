package gateway

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ContentType selects how a request body is encoded.
type ContentType string

const (
	ContentTypeJSON       ContentType = "json"
	ContentTypeURLEncoded ContentType = "urlencoded"
	ContentTypeMultipart  ContentType = "multipart"
)

// MIME values sent for each ContentType.
const (
	MIMEJSON       = "application/json; charset=utf-8"
	MIMEURLEncoded = "application/x-www-form-urlencoded; charset=utf-8"
	MIMEMultipart  = "multipart/form-data"
)

var contentTypes = map[ContentType]string{
	ContentTypeJSON:       MIMEJSON,
	ContentTypeURLEncoded: MIMEURLEncoded,
	ContentTypeMultipart:  MIMEMultipart,
}

const (
	defaultMethod = "get"
	headerCT      = "Content-Type"
)

var supportedMethods = map[string]struct{}{
	"options": {},
	"get":     {},
	"head":    {},
	"post":    {},
	"put":     {},
	"patch":   {},
	"delete":  {},
	"trace":   {},
	"connect": {},
}

// Request describes a single gateway call. The zero values of Method,
// ContentType and PrefixURL select get, json and the gateway default prefix.
type Request struct {
	URL    string
	Method string
	// Data is nil, map[string]any, map[string]string, url.Values, *Multipart,
	// or any value that marshals to a JSON object.
	Data        any
	ContentType ContentType
	PrefixURL   string
	Options     Options
}

// Options are per-call overrides merged over the gateway defaults.
type Options struct {
	// Headers are merged over the default headers. A Content-Type entry wins
	// over the ContentType selector.
	Headers map[string]string
	// Timeout shortens the transport timeout for this call.
	Timeout time.Duration
}

// Multipart is a multipart/form-data payload. Passing one as Request.Data
// switches the call to multipart regardless of ContentType.
type Multipart struct {
	Fields map[string]string
	Files  []MultipartFile
}

// MultipartFile is one file part of a Multipart payload.
type MultipartFile struct {
	Param       string
	FileName    string
	ContentType string
	Reader      io.Reader
}

// normalize applies defaults and validates the selector fields.
func (r Request) normalize(defaultPrefix string) (Request, error) {
	r.Method = strings.ToLower(strings.TrimSpace(r.Method))
	if r.Method == "" {
		r.Method = defaultMethod
	}
	if _, ok := supportedMethods[r.Method]; !ok {
		return r, fmt.Errorf("%w: %q", ErrUnsupportedMethod, r.Method)
	}

	if r.ContentType == "" {
		r.ContentType = ContentTypeJSON
	}
	if _, ok := contentTypes[r.ContentType]; !ok {
		return r, fmt.Errorf("%w: %q", ErrUnsupportedContentType, r.ContentType)
	}

	if r.PrefixURL == "" {
		r.PrefixURL = defaultPrefix
	}
	return r, nil
}

// target joins the prefix and URL as /{prefix}/{url}.
func (r Request) target() string {
	return "/" + r.PrefixURL + "/" + r.URL
}

// sendsQuery reports whether Data travels as query parameters.
func (r Request) sendsQuery() bool {
	return r.Method == "get" || r.Method == "head"
}

// headers merges caller headers over the defaults and forces Content-Type
// from the selector unless the caller set one.
func (r Request) headers() map[string]string {
	out := map[string]string{
		"Accept": "application/json",
	}
	var override string
	for k, v := range r.Options.Headers {
		key := http.CanonicalHeaderKey(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		if key == headerCT {
			override = v
			continue
		}
		out[key] = v
	}
	if override != "" {
		out[headerCT] = override
	} else {
		out[headerCT] = contentTypes[r.ContentType]
	}
	return out
}

// multipartHeaders replaces the negotiated headers for multipart bodies; the
// transport supplies the boundary Content-Type.
func multipartHeaders() map[string]string {
	return map[string]string{
		"X-Requested-With": "XMLHttpRequest",
		"Cache-Control":    "no-cache",
	}
}

func multipartAllowed(method string) bool {
	return method == "post" || method == "put" || method == "patch"
}
