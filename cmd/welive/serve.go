package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/june5815/welive/internal/http/ops"
	"github.com/june5815/welive/internal/observability/logger"
)

func serveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Arma el núcleo y expone /healthz, /readyz y /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, g)
		},
	}
}

func serve(ctx context.Context, g *globals) error {
	ctx = logger.WithFields(ctx, logger.String("addr", g.cfg.Server.Addr))
	log := logger.From(ctx).With(logger.Component("serve"))

	a, err := build(ctx, g.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr: g.cfg.Server.Addr,
		Handler: ops.NewRouter(ops.Deps{
			Checks:     a.checks(),
			Version:    version,
			Metrics:    a.metrics.Handler(),
			Instrument: a.metrics.WithHTTP,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shCtx, cancel := context.WithTimeout(context.Background(), g.cfg.ShutdownTimeout())
		defer cancel()
		return srv.Shutdown(shCtx)
	})
	return eg.Wait()
}
