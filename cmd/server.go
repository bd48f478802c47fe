package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"equipment_loan_tool/app"
	"equipment_loan_tool/config"
	"equipment_loan_tool/db"
	"equipment_loan_tool/logger"
	"equipment_loan_tool/routes"

	"github.com/spf13/cobra"
)

func NewServe() *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Long:         "Start the inventory HTTP API",
		SilenceUsage: true,
		RunE:         serve,
	}
}

func NewMigrate() *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Long:         "Create or update the postgres tables",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := config.Global()
			conn, err := db.ConnectDB(cmd.Context(), conf.Database, conf.Log.LogLevel)
			if err != nil {
				return err
			}
			defer db.Close(conn)
			if err := db.Migrate(conn); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Infof(cmd.Context(), "migration done")
			return nil
		},
	}
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	conf := config.Global()

	application, err := app.New(ctx, conf)
	if err != nil {
		return err
	}
	defer application.Close()

	srv := routes.RegisterRoutes(application.Router, application)
	defer func() { _ = srv.Live.Close() }()

	httpServer := http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Server.Port),
		Handler:           application.Router,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       30 * time.Second,
		TLSNextProto:      make(map[string]func(*http.Server, *tls.Conn, http.Handler)),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof(ctx, "listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(shutdownCtx, "shut down server err: %+v", err)
	}
	return nil
}
