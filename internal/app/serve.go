package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/valaphee/flow/internal/service"
)

// Serve runs the HTTP service until ctx is canceled, then shuts the server
// and the runtime host down gracefully.
func (a *App) Serve(ctx context.Context, cfg *Config) error {
	srv := service.New(
		a.logger,
		a.catalog,
		a,
		a.registry.Specs,
		a.bus,
		promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{}),
	)
	httpSrv := &http.Server{Addr: cfg.Listen, Handler: srv.Router()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("🚀 Service listening.", "addr", cfg.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutCtx)
	})

	err := g.Wait()
	a.logger.Info("🏁 Service stopped, waiting for tasks to settle.")
	a.Shutdown()
	return err
}
