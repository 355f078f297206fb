// Package toasters delivers user-visible error toasts to configured sinks.
package toasters

import (
	"context"

	"github.com/samvad-hq/callgate/internal/domain"
)

// Toaster shows a toast through one downstream channel (log, webhook, queue).
type Toaster interface {
	ID() string
	Type() string
	Toast(ctx context.Context, t domain.Toast) error
}
