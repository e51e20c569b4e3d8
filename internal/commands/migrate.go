package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinoosan/compta/internal/storage/postgres"
)

func newMigrateCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema to DATABASE_URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("migrate needs a database url (DATABASE_URL or database.url)")
			}
			pg, err := postgres.Open(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("connecting to postgres: %w", err)
			}
			defer pg.Close()
			applied, err := pg.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("migrating: %w", err)
			}
			logger.Info("schema applied", "files", applied)
			return nil
		},
	}
}
