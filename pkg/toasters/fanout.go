package toasters

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/samvad-hq/callgate/internal/domain"
)

// Fanout shows each toast on every configured toaster.
type Fanout struct {
	toasters []Toaster
}

// NewFanout builds a dispatcher over toasters, skipping nil entries.
func NewFanout(ts []Toaster) *Fanout {
	cp := make([]Toaster, 0, len(ts))
	for _, t := range ts {
		if t == nil {
			continue
		}
		cp = append(cp, t)
	}
	return &Fanout{toasters: cp}
}

// Toast forwards the toast to every toaster. A failing toaster does not stop
// the others; all failures are joined into the returned error.
func (f *Fanout) Toast(ctx context.Context, t domain.Toast) error {
	_, err := f.Deliver(ctx, t)
	return err
}

// Deliver is Toast that also reports how many toasters succeeded.
func (f *Fanout) Deliver(ctx context.Context, t domain.Toast) (int, error) {
	if f == nil || len(f.toasters) == 0 {
		return 0, nil
	}

	var errs []error
	successful := 0
	for _, ts := range f.toasters {
		if err := ts.Toast(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("%s toaster[%s]: %w", ts.Type(), ts.ID(), err))
		} else {
			successful++
		}
	}
	return successful, errors.Join(errs...)
}

// Size returns the number of active toasters.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.toasters)
}

// Close releases toasters that hold connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, t := range f.toasters {
		if c, ok := t.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s toaster[%s]: %w", t.Type(), t.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
