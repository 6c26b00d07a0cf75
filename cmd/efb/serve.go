package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/efb-avv-checker/internal/adapter/http"
	"github.com/couchcryptid/efb-avv-checker/internal/adapter/sqlite"
	"github.com/couchcryptid/efb-avv-checker/internal/checker"
	"github.com/spf13/cobra"
)

var httpAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog API over HTTP",
	Long: `Open the seeded catalog and serve the /api/v1 lookup routes together with
/healthz, /readyz and /metrics until SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&httpAddr, "addr", "", "listen address; overrides HTTP_ADDR")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("addr") {
		cfg.HTTPAddr = httpAddr
	}

	store, err := sqlite.OpenExisting(cmd.Context(), cfg.DBPath)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return fmt.Errorf("no catalog at %s, run seed first", cfg.DBPath)
		}
		return err
	}
	defer store.Close()

	svc := checker.NewService(store, newGeocoder(cfg, metrics, logger), logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
