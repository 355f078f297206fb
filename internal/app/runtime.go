package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/callgate/internal/config"
	"github.com/samvad-hq/callgate/internal/domain"
	"github.com/samvad-hq/callgate/internal/logger"
	"github.com/samvad-hq/callgate/internal/metrics"
	"github.com/samvad-hq/callgate/internal/storage"
	"github.com/samvad-hq/callgate/pkg/gateway"
	"github.com/samvad-hq/callgate/pkg/httpclient"
	"github.com/samvad-hq/callgate/pkg/mockapi"
	"github.com/samvad-hq/callgate/pkg/notifier"
	"github.com/samvad-hq/callgate/pkg/toasters"
)

const closeFlushTimeout = 5 * time.Second

// Runtime wires the gateway, the toast notifier and its sinks, toast history
// and metrics together from config.
type Runtime struct {
	cfg       *config.Config
	log       logger.Logger
	store     storage.Store
	fanout    *toasters.Fanout
	collector *notifier.Collector
	recorder  *metrics.Recorder
	gateway   *gateway.Gateway
	mock      *mockapi.Client
}

// NewRuntime builds a runtime from config.
func NewRuntime(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	fanout, err := buildToasters(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		ToastTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
		Valkey: storage.ValkeyOptions{
			Address:  cfg.ValkeyAddr,
			Username: cfg.ValkeyUsername,
			Password: cfg.ValkeyPassword,
			DB:       cfg.ValkeyDB,
		},
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"toast_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	recorder := metrics.NewRecorder(nil)

	collector := notifier.New(fanout,
		notifier.WithWindow(cfg.NotifyWindow),
		notifier.WithHistory(store),
		notifier.WithRecorder(recorder),
		notifier.WithLogger(log),
	)

	client, err := httpclient.NewRestyHTTPClient(httpclient.Options{
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.RequestTimeout,
		WithCredentials: cfg.WithCredentials,
	})
	if err != nil {
		_ = store.Close()
		_ = fanout.Close()
		return nil, fmt.Errorf("init http client: %w", err)
	}

	gw, err := gateway.New(client, collector, gateway.Config{
		DefaultPrefix:    cfg.DefaultPrefix,
		SuccessCode:      cfg.SuccessCode,
		UnauthorizedCode: cfg.UnauthorizedCode,
		ForbiddenCode:    cfg.ForbiddenCode,
		NotifyCanceled:   cfg.NotifyOnCanceled,
		OnUnauthorized: func(env gateway.Envelope) {
			log.WarnObj("session rejected by server", "envelope", map[string]any(env))
		},
		OnForbidden: func(env gateway.Envelope) {
			log.WarnObj("access forbidden by server", "envelope", map[string]any(env))
		},
	}, gateway.WithRecorder(recorder), gateway.WithLogger(log))
	if err != nil {
		_ = store.Close()
		_ = fanout.Close()
		return nil, fmt.Errorf("init gateway: %w", err)
	}

	log.InfoObj("gateway ready", "gateway_config", map[string]any{
		"base_url":         cfg.BaseURL,
		"default_prefix":   cfg.DefaultPrefix,
		"notify_window_ms": cfg.NotifyWindow.Milliseconds(),
		"toasters_count":   fanout.Size(),
	})

	return &Runtime{
		cfg:       cfg,
		log:       log,
		store:     store,
		fanout:    fanout,
		collector: collector,
		recorder:  recorder,
		gateway:   gw,
		mock:      mockapi.New(gw),
	}, nil
}

// buildToasters loads the toasters file, or falls back to a single log toaster.
func buildToasters(ctx context.Context, cfg *config.Config, log logger.Logger) (*toasters.Fanout, error) {
	if cfg.ToastersFile == "" {
		log.InfoObj("no toasters file configured; toasting to log", "toasters_meta", map[string]any{
			"count": 1,
		})
		return toasters.NewFanout([]toasters.Toaster{toasters.NewLogToaster("", log)}), nil
	}

	reg, err := toasters.LoadRegistry(cfg.ToastersFile)
	if err != nil {
		return nil, fmt.Errorf("load toasters registry: %w", err)
	}
	enabled := reg.Enabled()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no toasters enabled in %s", cfg.ToastersFile)
	}

	built, err := toasters.BuildAll(ctx, toasters.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build toasters: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, t := range enabled {
		summaries = append(summaries, map[string]string{"id": t.ID, "type": t.Type})
	}
	log.InfoObj("toasters registry loaded", "toasters_meta", map[string]any{
		"count":    len(summaries),
		"toasters": summaries,
	})
	return toasters.NewFanout(built), nil
}

// Gateway exposes the configured gateway.
func (r *Runtime) Gateway() *gateway.Gateway { return r.gateway }

// Get calls the mock getQuery endpoint.
func (r *Runtime) Get(ctx context.Context) (gateway.Envelope, error) {
	return r.mock.GetQuery(ctx)
}

// Del calls the mock postDel endpoint.
func (r *Runtime) Del(ctx context.Context, data any) (gateway.Envelope, error) {
	return r.mock.PostDel(ctx, data)
}

// Add calls the mock postAdd endpoint.
func (r *Runtime) Add(ctx context.Context, data any) (gateway.Envelope, error) {
	return r.mock.PostAdd(ctx, data)
}

// History lists recently shown toasts.
func (r *Runtime) History() ([]domain.ToastRecord, error) {
	return r.store.RecentToasts()
}

// Watch polls the mock endpoints until ctx is cancelled. Metrics are served
// on cfg.MetricsAddr while watching, when set.
func (r *Runtime) Watch(ctx context.Context) error {
	if r == nil || r.mock == nil {
		return fmt.Errorf("runtime is not initialized")
	}

	errCh := make(chan error, 1)
	if r.cfg.MetricsAddr != "" {
		srv := newMetricsServer(r.cfg.MetricsAddr, r.recorder.Handler(), r.log)
		go func() { errCh <- srv.Run(ctx) }()
	}

	r.log.InfoObj("watch loop starting", "watch_state", map[string]any{
		"poll_interval": r.cfg.PollInterval.String(),
		"metrics_addr":  r.cfg.MetricsAddr,
	})

	r.pollOnce(ctx, 0)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for seq := 1; ; seq++ {
		select {
		case <-ctx.Done():
			r.log.InfoObj("watch loop exiting", "reason", ctx.Err())
			return nil
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
		case <-ticker.C:
			r.pollOnce(ctx, seq)
		}
	}
}

// pollOnce hits each mock endpoint once. Failures are already toasted by the
// gateway, so they are only logged at debug level here.
func (r *Runtime) pollOnce(ctx context.Context, seq int) {
	start := time.Now()
	calls := []struct {
		name string
		fn   func() (gateway.Envelope, error)
	}{
		{name: "getQuery", fn: func() (gateway.Envelope, error) { return r.Get(ctx) }},
		{name: "postDel", fn: func() (gateway.Envelope, error) { return r.Del(ctx, map[string]any{"seq": seq}) }},
		{name: "postAdd", fn: func() (gateway.Envelope, error) { return r.Add(ctx, map[string]any{"seq": seq}) }},
	}

	failed := 0
	for _, c := range calls {
		if _, err := c.fn(); err != nil {
			failed++
			r.log.DebugObj("poll call failed", "poll_error", map[string]any{
				"endpoint": c.name,
				"error":    err.Error(),
			})
		}
	}
	r.log.InfoObj("poll completed", "poll_meta", map[string]any{
		"seq":        seq,
		"failed":     failed,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
}

// Close flushes pending toasts and releases sinks and storage.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeFlushTimeout)
	defer cancel()

	if r.collector != nil {
		if shown := r.collector.Close(ctx); shown > 0 {
			r.log.InfoObj("pending toasts flushed on close", "toasts_flushed", shown)
		}
	}
	if r.fanout != nil {
		if err := r.fanout.Close(); err != nil {
			r.log.ErrorObj("toasters close failed", "error", err)
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.log.ErrorObj("storage close failed", "error", err)
		}
	}
}
