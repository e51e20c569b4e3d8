package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinoosan/compta/internal/code"
	"github.com/tinoosan/compta/internal/dictionary"
	"github.com/tinoosan/compta/internal/errs"
	"github.com/tinoosan/compta/internal/ledger"
	"github.com/tinoosan/compta/internal/service/account"
	"github.com/tinoosan/compta/internal/service/journal"
	"github.com/tinoosan/compta/internal/service/period"
	"github.com/tinoosan/compta/internal/storage"
)

// SeedResult counts what Seed created.
type SeedResult struct {
	Journals int
	Accounts int
	// Period is the code of the created period, empty when one already covered now.
	Period string
}

// Seed creates the default journals, the default chart of accounts and a
// period for the month of now. Existing journals, accounts and periods are
// left alone, so running it twice is harmless.
func Seed(ctx context.Context, store storage.Store, now time.Time) (SeedResult, error) {
	var res SeedResult
	journals := journal.New(store)
	for _, def := range dictionary.DefaultJournals() {
		_, err := store.JournalByCode(ctx, def.Code)
		if err == nil {
			continue
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return res, err
		}
		if _, err := journals.Create(ctx, ledger.Journal{Code: def.Code, Label: def.Label, Type: def.Type, Active: true}); err != nil {
			return res, fmt.Errorf("journal %s: %w", def.Code, err)
		}
		res.Journals++
	}

	accounts := account.New(store)
	for _, def := range dictionary.DefaultChart() {
		_, err := store.AccountByNumber(ctx, code.Normalize(def.Number))
		if err == nil {
			continue
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return res, err
		}
		a := ledger.Account{Number: def.Number, Name: def.Name, AllowEntry: def.AllowEntry, Static: true, Active: true}
		if _, err := accounts.Create(ctx, a); err != nil {
			return res, fmt.Errorf("account %s: %w", def.Number, err)
		}
		res.Accounts++
	}

	periods := period.New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := periods.PeriodFor(ctx, now)
	if errors.Is(err, errs.ErrNoPeriod) {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		p, err := periods.Create(ctx, ledger.FiscalPeriod{Start: start, End: start.AddDate(0, 1, -1)})
		if err != nil {
			return res, fmt.Errorf("period: %w", err)
		}
		res.Period = p.Code
		return res, nil
	}
	return res, err
}

func newSeedCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create default journals, a minimal chart of accounts and the current period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("seed needs a database url (DATABASE_URL or database.url)")
			}
			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			res, err := Seed(cmd.Context(), store, time.Now())
			if err != nil {
				return err
			}
			logger.Info("seeded", "journals", res.Journals, "accounts", res.Accounts, "period", res.Period)
			fmt.Fprintf(cmd.OutOrStdout(), "journals: %d\naccounts: %d\nperiod: %s\n", res.Journals, res.Accounts, res.Period)
			return nil
		},
	}
}
