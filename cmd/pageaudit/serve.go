package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pageaudit/internal/api/v1/handler"
	"pageaudit/internal/api/v1/router"
	"pageaudit/internal/config"
	"pageaudit/internal/debug"
	"pageaudit/internal/log"
	"pageaudit/internal/service"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the audit API under /pageaudit/api/v1 and Prometheus metrics on a
separate listener. Profiling endpoints are exposed when IS_DEV is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(false)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

func runServe(cfg *config.Config) error {
	defer log.Sync()

	analyzer, err := service.New(cfg)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router.New(handler.New(analyzer, cfg.MaxBodyBytes), cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           router.NewMetricsRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	serverErr := make(chan error, 1)
	go func() {
		log.Logger.Info("Server started", zap.String("addr", cfg.ServerAddr), zap.String("base_path", router.BasePath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Pprof only enabled in dev env
	var pprofServer *http.Server
	if cfg.IsDev {
		pprofServer = debug.NewPprofServer(cfg.PprofAddr)
		debug.StartPprof(pprofServer)
	}

	go func() {
		log.Logger.Info("Metrics server started", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		_ = metricsServer.Close()
		return fmt.Errorf("server failed: %w", err)
	}
	log.Logger.Info("Shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := []error{server.Shutdown(ctx), metricsServer.Shutdown(ctx)}
	if pprofServer != nil {
		errs = append(errs, pprofServer.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Logger.Info("Server exited successfully")
	return nil
}
