package toasters

import (
	"context"
	"errors"
	"testing"

	"github.com/samvad-hq/callgate/internal/domain"
)

type stubToaster struct {
	id     string
	typ    string
	err    error
	calls  int
	closed bool
}

func (s *stubToaster) ID() string   { return s.id }
func (s *stubToaster) Type() string { return s.typ }
func (s *stubToaster) Toast(context.Context, domain.Toast) error {
	s.calls++
	return s.err
}
func (s *stubToaster) Close() error {
	s.closed = true
	return nil
}

func TestFanoutDeliverAggregatesErrors(t *testing.T) {
	ok := &stubToaster{id: "ok", typ: "http"}
	bad := &stubToaster{id: "bad", typ: "http", err: errors.New("failed")}
	fanout := NewFanout([]Toaster{ok, nil, bad})

	if fanout.Size() != 2 {
		t.Fatalf("expected nil toasters to be skipped, size=%d", fanout.Size())
	}

	count, err := fanout.Deliver(context.Background(), domain.Toast{Message: "x"})
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if ok.calls != 1 || bad.calls != 1 {
		t.Fatalf("expected every toaster to be called, got ok=%d bad=%d", ok.calls, bad.calls)
	}
}

func TestFanoutCloseReleasesClosers(t *testing.T) {
	s := &stubToaster{id: "s", typ: "pubsub"}
	if err := NewFanout([]Toaster{s}).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !s.closed {
		t.Fatalf("expected toaster to be closed")
	}
}

func TestLogToasterNeverFails(t *testing.T) {
	toaster := NewLogToaster("", nil)
	if toaster.ID() != TypeLog {
		t.Fatalf("expected default id %q, got %q", TypeLog, toaster.ID())
	}
	if err := toaster.Toast(context.Background(), domain.Toast{Message: "x"}); err != nil {
		t.Fatalf("Toast: %v", err)
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	ts, err := BuildAll(context.Background(), reg, []ToasterConfig{
		{ID: "hook", Type: TypeHTTP, HTTP: &HTTPConfig{URL: "https://example.com"}},
		{ID: "console", Type: TypeLog},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(ts) != 2 {
		t.Fatalf("expected 2 toasters, got %d", len(ts))
	}
}

func TestBuildAllRejectsUnknownType(t *testing.T) {
	_, err := BuildAll(context.Background(), DefaultRegistry(), []ToasterConfig{{ID: "x", Type: "kafka"}}, nil)
	if err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}

func TestBuildAllSkipsDisabledAndClosesOnFailure(t *testing.T) {
	var built []*stubToaster
	reg := NewRegistry(map[string]Builder{
		TypeLog: func(_ context.Context, cfg ToasterConfig, _ Logger) (Toaster, error) {
			s := &stubToaster{id: cfg.ID, typ: TypeLog}
			built = append(built, s)
			return s, nil
		},
		TypeHTTP: func(context.Context, ToasterConfig, Logger) (Toaster, error) {
			return nil, errors.New("dial failed")
		},
	})
	off := false

	ts, err := BuildAll(context.Background(), reg, []ToasterConfig{
		{ID: "console", Type: TypeLog},
		{ID: "muted", Type: TypeLog, Enabled: &off},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(ts) != 1 || ts[0].ID() != "console" {
		t.Fatalf("expected only the enabled toaster, got %d", len(ts))
	}

	built = nil
	_, err = BuildAll(context.Background(), reg, []ToasterConfig{
		{ID: "console", Type: TypeLog},
		{ID: "hook", Type: TypeHTTP, HTTP: &HTTPConfig{URL: "https://example.com/hook"}},
	}, nil)
	if err == nil {
		t.Fatalf("expected build error")
	}
	if len(built) != 1 || !built[0].closed {
		t.Fatalf("expected the already built toaster to be closed")
	}
}

func TestBuildAllValidatesEntries(t *testing.T) {
	cases := []struct {
		name string
		cfgs []ToasterConfig
	}{
		{name: "relative webhook", cfgs: []ToasterConfig{{ID: "hook", Type: TypeHTTP, HTTP: &HTTPConfig{URL: "hook"}}}},
		{name: "duplicate id", cfgs: []ToasterConfig{{ID: "a", Type: TypeLog}, {ID: " a ", Type: TypeLog}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := BuildAll(context.Background(), DefaultRegistry(), tc.cfgs, nil); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
