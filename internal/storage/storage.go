package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/callgate/internal/domain"
)

// Package storage keeps the history of displayed toasts.

// Store records displayed toast messages.
type Store interface {
	Close() error
	// RecordToast notes that message was shown at the given time and returns
	// how often it has been shown within the retention window.
	RecordToast(message string, at time.Time) (int, error)
	// RecentToasts lists unexpired records, most recently shown first.
	RecentToasts() ([]domain.ToastRecord, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	ToastTTL        time.Duration
	CleanupInterval time.Duration
	Valkey          ValkeyOptions
}

const (
	defaultToastTTL        = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	case "valkey", "redis":
		return openValkey(opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.ToastTTL <= 0 {
		opts.ToastTTL = defaultToastTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                                { return nil }
func (noopStore) RecordToast(string, time.Time) (int, error)  { return 0, nil }
func (noopStore) RecentToasts() ([]domain.ToastRecord, error) { return nil, nil }
