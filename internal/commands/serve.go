package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/tinoosan/compta/internal/httpapi/v1"
	"github.com/tinoosan/compta/internal/storage/postgres"
)

func newServeCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			_, onPostgres := store.(*postgres.Store)
			logger.Info("storage backend", "postgres", onPostgres)
			// The memory store starts empty, so it always gets the dev book.
			if !onPostgres || cfg.Book.DevSeed {
				res, err := Seed(ctx, store, time.Now())
				if err != nil {
					logger.Error("dev seed failed", "err", err)
				} else {
					logger.Info("dev seed", "journals", res.Journals, "accounts", res.Accounts, "period", res.Period)
				}
			}

			api := httpapi.New(store, logger, httpapi.Options{
				Currency: cfg.Book.Currency,
				TopN:     cfg.Book.TopN,
				Auth:     httpapi.AuthConfig{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer, Audience: cfg.Auth.Audience},
			})
			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           api.Handler(),
				ReadTimeout:       cfg.Server.ReadTimeout,
				ReadHeaderTimeout: cfg.Server.ReadTimeout,
				WriteTimeout:      cfg.Server.WriteTimeout,
				IdleTimeout:       cfg.Server.IdleTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("compta listening", "addr", srv.Addr, "book", cfg.Book.Name, "currency", cfg.Book.Currency)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("server shutdown error", "err", err)
					return err
				}
				logger.Info("server stopped")
				return nil
			case err := <-errCh:
				logger.Error("server error", "err", err)
				return err
			}
		},
	}
}
