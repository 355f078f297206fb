package gateway

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxErrorBodyBytes = 64 << 10

// errorDetails builds the StatusError for a non-2xx response body. JSON
// bodies use their status and message fields; HTML error pages fall back to
// their title. Missing values default to the HTTP status and
// DefaultFailureMessage. A status that is not numeric keeps the HTTP status
// as Code and is carried verbatim in BodyStatus.
func errorDetails(body []byte, contentType string, httpStatus int) *StatusError {
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}

	out := &StatusError{Code: httpStatus, HTTPStatus: httpStatus}
	var msg string

	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err == nil && payload != nil {
		raw := payload["status"]
		if c, ok := statusField(raw); ok {
			out.Code = c
		} else if str, ok := raw.(string); ok {
			out.BodyStatus = strings.TrimSpace(str)
		}
		msg, _ = payload["message"].(string)
	} else if looksLikeHTML(body, contentType) {
		msg = htmlTitle(body)
	}

	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = DefaultFailureMessage
	}
	out.RespMsg = msg
	return out
}

func statusField(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func looksLikeHTML(body []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(body), []byte("<"))
}

// htmlTitle extracts a human readable message from an HTML error page.
func htmlTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	for _, sel := range []string{"title", "h1"} {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}
