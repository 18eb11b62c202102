package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jengzang/moodmap-backend-go/internal/api"
	"github.com/jengzang/moodmap-backend-go/internal/middleware"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			return serve(cmd.Context(), a)
		},
	}
}

func serve(parent context.Context, a *app) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := a.moods.Seed(a.cfg.SeedMode, a.cfg.SeedCount); err != nil {
		return err
	}

	report, err := a.maps.Start(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("map ready",
		zap.Strings("layers", report.Layers),
		zap.Strings("skipped_layers", report.SkippedLayers),
		zap.Int("images", len(report.Images)),
	)

	limiter := middleware.NewRateLimiter(a.cfg.RateLimit, a.cfg.RateWindow)
	go limiter.Run(ctx)

	router := api.SetupRouter(a.cfg, api.Dependencies{
		Moods:   a.moods,
		Maps:    a.maps,
		Metrics: a.metrics,
		Limiter: limiter,
		Logger:  a.logger,
	})
	srv := &http.Server{
		Addr:              a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", a.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
