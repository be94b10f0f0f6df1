package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bher20/ebillmanager/internal/api"
	"github.com/bher20/ebillmanager/internal/auth"
	"github.com/bher20/ebillmanager/internal/metrics"
	"github.com/bher20/ebillmanager/internal/migrate"
	"github.com/bher20/ebillmanager/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	// Optional auto-migration: run `goose up` before opening storage.
	if cfg.Server.AutoMigrate && cfg.Storage.Driver != "memory" {
		if err := migrate.Up(ctx, cfg.Storage.Driver, cfg.Storage.DSN); err != nil {
			return fmt.Errorf("auto-migration: %w", err)
		}
		log.Info("migrations applied", zap.String("driver", cfg.Storage.Driver))
	}

	a, err := newAppFrom(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	deps := api.Deps{
		Engine:     a.engine,
		Households: a.households,
		Store:      a.store,
		Calculator: a.calc,
		Logger:     a.log,
	}
	if a.cfg.Auth.Enabled {
		deps.Auth, err = auth.NewService(a.cfg.Auth.AdminUser, a.cfg.Auth.AdminPasswordHash)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if ps, ok := a.store.(storage.PoolStatser); ok {
		go reportPoolStats(ctx, ps)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      api.NewMux(deps),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("ebillmanager listening", zap.String("addr", srv.Addr), zap.String("storage", a.cfg.Storage.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func reportPoolStats(ctx context.Context, ps storage.PoolStatser) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		s := ps.PoolStats()
		metrics.UpdateDBPoolMetrics(s.Driver, float64(s.Total), float64(s.Idle), float64(s.Acquired))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
