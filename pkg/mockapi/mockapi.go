// Package mockapi holds example call sites for the mock backend.
package mockapi

import (
	"context"

	"github.com/samvad-hq/callgate/pkg/gateway"
)

// Prefix is the path prefix shared by the mock endpoints.
const Prefix = "api1"

// Caller issues gateway requests. *gateway.Gateway satisfies it.
type Caller interface {
	Call(ctx context.Context, req gateway.Request) (gateway.Envelope, error)
}

// Client calls the mock endpoints.
type Client struct {
	caller Caller
}

// New returns a Client over caller.
func New(caller Caller) *Client {
	return &Client{caller: caller}
}

// GetQuery fetches mock/getQuery.
func (c *Client) GetQuery(ctx context.Context) (gateway.Envelope, error) {
	return c.caller.Call(ctx, gateway.Request{
		URL:       "mock/getQuery",
		PrefixURL: Prefix,
	})
}

// PostDel posts data to mock/postDel as JSON.
func (c *Client) PostDel(ctx context.Context, data any) (gateway.Envelope, error) {
	return c.caller.Call(ctx, gateway.Request{
		URL:       "mock/postDel",
		Method:    "post",
		Data:      data,
		PrefixURL: Prefix,
	})
}

// PostAdd posts data to mock/postAdd as a urlencoded form.
func (c *Client) PostAdd(ctx context.Context, data any) (gateway.Envelope, error) {
	return c.caller.Call(ctx, gateway.Request{
		URL:         "mock/postAdd",
		Method:      "post",
		Data:        data,
		ContentType: gateway.ContentTypeURLEncoded,
		PrefixURL:   Prefix,
	})
}
