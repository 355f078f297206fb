// Package gateway wraps a resty client with default headers, content-type
// negotiation, response envelope unwrapping and error notification.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Call outcomes reported to the Recorder.
const (
	OutcomeSuccess      = "success"
	OutcomeApplication  = "application_error"
	OutcomeUnauthorized = "unauthorized"
	OutcomeForbidden    = "forbidden"
	OutcomeStatus       = "status_error"
	OutcomeCanceled     = "canceled"
	OutcomeInvalid      = "invalid_request"
)

const defaultPrefix = "api"

// Notifier receives user-facing error messages.
type Notifier interface {
	Notify(message string)
}

// Recorder observes completed calls.
type Recorder interface {
	ObserveCall(method, prefix, outcome string, elapsed time.Duration)
}

// Config holds the server contract and policies of a Gateway.
type Config struct {
	// DefaultPrefix is used when Request.PrefixURL is empty.
	DefaultPrefix string

	// Envelope code sentinels agreed with the server.
	SuccessCode      string
	UnauthorizedCode string
	ForbiddenCode    string

	// NotifyCanceled also reports calls that got no response at all.
	NotifyCanceled bool

	OnUnauthorized func(Envelope)
	OnForbidden    func(Envelope)
}

// Gateway issues requests through a shared resty client.
type Gateway struct {
	client   *resty.Client
	cfg      Config
	notifier Notifier
	rec      Recorder
	log      Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRecorder attaches a call recorder.
func WithRecorder(r Recorder) Option {
	return func(g *Gateway) { g.rec = r }
}

// WithLogger attaches a logger.
func WithLogger(l Logger) Option {
	return func(g *Gateway) { g.log = ensureLogger(l) }
}

// New builds a Gateway. The client should come from httpclient.NewRestyHTTPClient
// so the path middleware is installed exactly once.
func New(client *resty.Client, notifier Notifier, cfg Config, opts ...Option) (*Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("gateway: resty client must not be nil")
	}
	cfg.DefaultPrefix = strings.Trim(strings.TrimSpace(cfg.DefaultPrefix), "/")
	if cfg.DefaultPrefix == "" {
		cfg.DefaultPrefix = defaultPrefix
	}

	g := &Gateway{
		client:   client,
		cfg:      cfg,
		notifier: notifier,
		log:      noopLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Call sends req and unwraps the response envelope. It returns the envelope
// on the success code, and otherwise one of ErrMissingURL (or another caller
// error), *EnvelopeError, *StatusError or *CanceledError.
func (g *Gateway) Call(ctx context.Context, req Request) (Envelope, error) {
	if req.URL == "" {
		return nil, ErrMissingURL
	}
	req, err := req.normalize(g.cfg.DefaultPrefix)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	env, outcome, err := g.do(ctx, req)
	g.observe(req, outcome, time.Since(start), err)
	return env, err
}

func (g *Gateway) do(ctx context.Context, req Request) (Envelope, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Options.Timeout)
		defer cancel()
	}

	r, err := g.prepare(ctx, req)
	if err != nil {
		return nil, OutcomeInvalid, err
	}

	resp, err := r.Execute(strings.ToUpper(req.Method), req.target())
	if err != nil {
		if g.cfg.NotifyCanceled {
			g.notify(TimeoutMessage)
		}
		return nil, OutcomeCanceled, newCanceledError(err)
	}

	if !resp.IsSuccess() {
		statusErr := errorDetails(resp.Body(), resp.Header().Get(headerCT), resp.StatusCode())
		g.notify(statusErr.RespMsg)
		return nil, OutcomeStatus, statusErr
	}

	return g.unwrap(resp.Body())
}

// prepare builds the resty request: query for get/head, otherwise a
// multipart, form-encoded or compacted JSON body.
func (g *Gateway) prepare(ctx context.Context, req Request) (*resty.Request, error) {
	r := g.client.R().SetContext(ctx)
	headers := req.headers()

	if req.sendsQuery() {
		vals, err := EncodeValues(req.Data)
		if err != nil {
			return nil, err
		}
		r.SetQueryParamsFromValues(vals)
		r.SetHeaders(headers)
		return r, nil
	}

	mp, isMultipart := req.Data.(*Multipart)
	if !isMultipart && headers[headerCT] == MIMEMultipart {
		converted, err := multipartFrom(req.Data)
		if err != nil {
			return nil, err
		}
		mp, isMultipart = converted, true
	}

	switch {
	case isMultipart:
		if !multipartAllowed(req.Method) {
			return nil, fmt.Errorf("%w: got %s", ErrMultipartMethod, req.Method)
		}
		headers = multipartHeaders()
		fields := map[string]string{}
		if mp != nil {
			for k, v := range mp.Fields {
				fields[k] = v
			}
		}
		r.SetMultipartFormData(fields)
		if mp != nil {
			for _, f := range mp.Files {
				r.SetMultipartField(f.Param, f.FileName, f.ContentType, f.Reader)
			}
		}
	case headers[headerCT] == MIMEURLEncoded:
		vals, err := EncodeValues(req.Data)
		if err != nil {
			return nil, err
		}
		r.SetBody(vals.Encode())
	default:
		payload, err := toPayload(req.Data)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(CompactPayload(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedPayload, err)
		}
		r.SetBody(raw)
	}

	r.SetHeaders(headers)
	return r, nil
}

// unwrap classifies a 2xx body by its envelope code.
func (g *Gateway) unwrap(body []byte) (Envelope, string, error) {
	env, err := decodeEnvelope(body)
	if err != nil {
		g.log.WarnObj("response envelope undecodable", "envelope_error", map[string]any{
			"error": err.Error(),
		})
		env = Envelope{"message": DefaultFailureMessage}
		g.notify(DefaultFailureMessage)
		return nil, OutcomeApplication, &EnvelopeError{Kind: KindApplication, Envelope: env}
	}

	code := env.Code()
	switch {
	case g.cfg.UnauthorizedCode != "" && code == g.cfg.UnauthorizedCode:
		if g.cfg.OnUnauthorized != nil {
			g.cfg.OnUnauthorized(env)
		}
		return nil, OutcomeUnauthorized, &EnvelopeError{Kind: KindUnauthorized, Envelope: env}
	case g.cfg.ForbiddenCode != "" && code == g.cfg.ForbiddenCode:
		if g.cfg.OnForbidden != nil {
			g.cfg.OnForbidden(env)
		}
		return nil, OutcomeForbidden, &EnvelopeError{Kind: KindForbidden, Envelope: env}
	case code == g.cfg.SuccessCode:
		return env, OutcomeSuccess, nil
	default:
		msg := env.Message()
		if msg == "" {
			msg = DefaultFailureMessage
		}
		g.notify(msg)
		return nil, OutcomeApplication, &EnvelopeError{Kind: KindApplication, Envelope: env}
	}
}

func (g *Gateway) notify(msg string) {
	if g.notifier == nil {
		return
	}
	g.notifier.Notify(msg)
}

func (g *Gateway) observe(req Request, outcome string, elapsed time.Duration, err error) {
	if g.rec != nil {
		g.rec.ObserveCall(req.Method, req.PrefixURL, outcome, elapsed)
	}
	fields := map[string]any{
		"method":     req.Method,
		"path":       req.target(),
		"outcome":    outcome,
		"elapsed_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	g.log.DebugObj("gateway call completed", "gateway_call", fields)
}
