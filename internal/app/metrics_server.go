package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/samvad-hq/callgate/internal/logger"
)

type metricsServer struct {
	httpServer *http.Server
	log        logger.Logger
	once       sync.Once
}

func newMetricsServer(addr string, handler http.Handler, log logger.Logger) *metricsServer {
	r := mux.NewRouter()
	r.StrictSlash(true).Path("/metrics").Methods(http.MethodGet).Handler(handler)
	r.Path("/health").Methods(http.MethodGet).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &metricsServer{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *metricsServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.InfoObj("metrics listener starting", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *metricsServer) shutdown(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		s.log.InfoObj("metrics listener shutting down", "address", s.httpServer.Addr)
		err = s.httpServer.Shutdown(ctx)
	})
	return err
}
