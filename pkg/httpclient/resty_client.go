package httpclient

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options configures the shared transport.
type Options struct {
	// BaseURL anchors every relative request path. A trailing "/" is implied.
	BaseURL string
	Timeout time.Duration
	// WithCredentials keeps a cookie jar so session cookies travel with requests.
	WithCredentials bool
}

// NewRestyHTTPClient builds the resty.Client every call site shares. The path
// middleware is registered here, once per client, so it runs exactly once per
// outgoing request no matter how many callers use the client.
func NewRestyHTTPClient(opts Options) (*resty.Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	c := newRestyBaseClient(opts.Timeout)
	if !opts.WithCredentials {
		c.SetCookieJar(nil)
	}
	c.OnBeforeRequest(relativePaths(base))
	return c, nil
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// StripLeadingSlash removes a single leading "/" so the path resolves
// relative to the base URL.
func StripLeadingSlash(p string) string {
	return strings.TrimPrefix(p, "/")
}

// relativePaths rewrites relative request URLs against base.
func relativePaths(base *url.URL) resty.RequestMiddleware {
	return func(_ *resty.Client, r *resty.Request) error {
		ref, err := url.Parse(StripLeadingSlash(r.URL))
		if err != nil {
			return fmt.Errorf("parse request path %q: %w", r.URL, err)
		}
		if ref.IsAbs() {
			return nil
		}
		r.URL = base.ResolveReference(ref).String()
		return nil
	}
}

// NewWebhookClient builds a client for absolute URLs, such as outbound hooks,
// without the base URL middleware.
func NewWebhookClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}
