package toasters

import (
	"context"

	"github.com/samvad-hq/callgate/internal/domain"
)

type logToaster struct {
	id  string
	log Logger
}

// NewLogToaster writes toasts as structured log lines. It is the fallback
// when no toasters file is configured.
func NewLogToaster(id string, log Logger) Toaster {
	if id == "" {
		id = TypeLog
	}
	return &logToaster{id: id, log: ensureLogger(log)}
}

func newLogToaster(_ context.Context, cfg ToasterConfig, log Logger) (Toaster, error) {
	return NewLogToaster(cfg.ID, log), nil
}

func (l *logToaster) ID() string   { return l.id }
func (l *logToaster) Type() string { return TypeLog }

func (l *logToaster) Toast(_ context.Context, t domain.Toast) error {
	l.log.WarnObj(t.Message, "toast", map[string]any{
		"toaster_id":  l.id,
		"occurrences": t.Occurrences,
		"raised_at":   t.RaisedAt,
	})
	return nil
}
