package toasters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/callgate/internal/domain"
	"github.com/samvad-hq/callgate/pkg/httpclient"
)

type httpToaster struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
}

func newHTTPToaster(_ context.Context, cfg ToasterConfig, _ Logger) (Toaster, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("toaster %q missing http configuration", cfg.ID)
	}

	method := cfg.HTTP.Method
	if method == "" {
		method = httpDefaultMethod
	}
	timeout := cfg.HTTP.TimeoutSeconds
	if timeout <= 0 {
		timeout = httpDefaultTimeoutSeconds
	}

	return &httpToaster{
		id:      cfg.ID,
		method:  method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewWebhookClient(time.Duration(timeout) * time.Second),
	}, nil
}

func (h *httpToaster) ID() string   { return h.id }
func (h *httpToaster) Type() string { return TypeHTTP }

func (h *httpToaster) Toast(ctx context.Context, t domain.Toast) error {
	req := h.client.R().
		SetContext(ctx).
		SetBody(t)

	if len(h.headers) > 0 {
		req.SetHeaders(h.headers)
	}

	req.SetHeader("Content-Type", "application/json")

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		snippet := readBodySnippet(resp.Body())
		return fmt.Errorf("http response status %d: %s", resp.StatusCode(), snippet)
	}
	return nil
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
