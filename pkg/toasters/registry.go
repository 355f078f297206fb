package toasters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Builder creates a Toaster from a config entry.
type Builder func(ctx context.Context, cfg ToasterConfig, log Logger) (Toaster, error)

// Registry maps toaster types to builders.
type Registry interface {
	Register(typ string, builder Builder)
	ToasterFor(ctx context.Context, cfg ToasterConfig, log Logger) (Toaster, error)
}

type registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry with optional pre-registered builders.
func NewRegistry(builders map[string]Builder) Registry {
	r := &registry{
		builders: make(map[string]Builder),
	}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// Register associates a builder with a toaster type.
func (r *registry) Register(typ string, builder Builder) {
	if typ = strings.TrimSpace(strings.ToLower(typ)); typ == "" || builder == nil {
		return
	}

	r.mu.Lock()
	r.builders[typ] = builder
	r.mu.Unlock()
}

// ToasterFor returns the toaster built for the provided config.
func (r *registry) ToasterFor(ctx context.Context, cfg ToasterConfig, log Logger) (Toaster, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("toaster %q has no type configured", cfg.ID)
	}

	r.mu.RLock()
	builder := r.builders[strings.ToLower(cfg.Type)]
	r.mu.RUnlock()

	if builder == nil {
		return nil, fmt.Errorf("no toaster registered for type %q", cfg.Type)
	}
	return builder(ctx, cfg, log)
}

// DefaultRegistry wires up known toasters.
func DefaultRegistry() Registry {
	return NewRegistry(map[string]Builder{
		TypeLog:    newLogToaster,
		TypeHTTP:   newHTTPToaster,
		TypeSQS:    newSQSToaster,
		TypeSNS:    newSNSToaster,
		TypePubSub: newPubSubToaster,
	})
}

// BuildAll instantiates the enabled toasters in cfgs. Entries are sanitized
// and validated the same way as the toasters file, so programmatic configs
// get the same checks. If any entry fails, toasters already built are closed.
func BuildAll(ctx context.Context, reg Registry, cfgs []ToasterConfig, log Logger) ([]Toaster, error) {
	if reg == nil || len(cfgs) == 0 {
		return nil, nil
	}

	var out []Toaster
	seen := make(map[string]struct{}, len(cfgs))
	fail := func(err error) ([]Toaster, error) {
		if cerr := (&Fanout{toasters: out}).Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}

	for _, raw := range cfgs {
		cfg := sanitizeToasterConfig(raw)
		if !cfg.EnabledValue() {
			continue
		}
		if err := validateToasterConfig(cfg); err != nil {
			return fail(err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return fail(fmt.Errorf("duplicate toaster id %q", cfg.ID))
		}
		seen[cfg.ID] = struct{}{}

		t, err := reg.ToasterFor(ctx, cfg, log)
		if err != nil {
			return fail(fmt.Errorf("build %s toaster %q: %w", cfg.Type, cfg.ID, err))
		}
		out = append(out, t)
	}
	return out, nil
}
