package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/dhaaraai/go-auth/internal/db"
	"github.com/dhaaraai/go-auth/internal/migrations"
	"github.com/dhaaraai/go-auth/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authentication HTTP server",
	Long:  `Starts the HTTP server exposing register, login and the authenticated probe endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		database, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close(database)

		if cfg.Server.AutoMigrate {
			group, err := migrations.Run(ctx, database)
			if err != nil {
				return err
			}
			if group != 0 {
				logger.Info("applied migrations", "group", group)
			}
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		srv, err := server.New(cfg, database, logger, reg)
		if err != nil {
			return fmt.Errorf("failed to build server: %w", err)
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", cfg.Server.Addr, "base_path", cfg.Server.BasePath)
			errCh <- srv.App.Listen(cfg.Server.Addr)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
		if err := srv.App.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (env: DHAARA_AUTH_SERVER__ADDR)")
	serveCmd.Flags().String("base-path", "", "Mount path of the auth routes (env: DHAARA_AUTH_SERVER__BASE_PATH)")
	serveCmd.Flags().Bool("auto-migrate", true, "Apply pending migrations on start (env: DHAARA_AUTH_SERVER__AUTO_MIGRATE)")
}
