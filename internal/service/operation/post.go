package operation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tinoosan/compta/internal/code"
	"github.com/tinoosan/compta/internal/errs"
	"github.com/tinoosan/compta/internal/ledger"
	"github.com/tinoosan/compta/internal/service/entry"
	"github.com/tinoosan/compta/internal/storage"
)

// ThirdPartyResolver maps a transaction's third-party reference to the client
// or supplier sub-account it posts to.
type ThirdPartyResolver interface {
	ResolveThirdParty(ctx context.Context, r storage.Reader, ref string) (ledger.Account, error)
}

// NumberResolver resolves a reference to the dynamic, postable account whose
// number equals it.
type NumberResolver struct{}

func (NumberResolver) ResolveThirdParty(ctx context.Context, r storage.Reader, ref string) (ledger.Account, error) {
	acc, err := r.AccountByNumber(ctx, code.Normalize(ref))
	if err != nil {
		return ledger.Account{}, err
	}
	if acc.Static || !acc.AllowEntry || !acc.Active {
		return ledger.Account{}, fmt.Errorf("account %s is not a third-party account", acc.Number)
	}
	return acc, nil
}

func (s *service) Post(ctx context.Context, id uuid.UUID, txn ledger.Transaction, actor string) (ledger.Entry, error) {
	if txn.Amount <= 0 {
		return ledger.Entry{}, errs.Invalid("amount must be positive")
	}
	if txn.Tax < 0 || txn.Tax > txn.Amount {
		return ledger.Entry{}, errs.Invalid("tax must be between 0 and amount")
	}
	var created ledger.Entry
	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		t, err := tx.TemplateByID(ctx, id)
		if err != nil {
			return err
		}
		if !t.Active {
			return fmt.Errorf("template %q is inactive: %w", t.Label, errs.ErrState)
		}

		var thirdParty uuid.UUID
		if needsThirdParty(t) {
			if strings.TrimSpace(txn.ThirdParty) == "" {
				return fmt.Errorf("no third-party reference: %w", errs.ErrUnresolvedCounterparty)
			}
			acc, err := s.resolver.ResolveThirdParty(ctx, tx, txn.ThirdParty)
			if err != nil {
				return fmt.Errorf("third party %q: %v: %w", txn.ThirdParty, err, errs.ErrUnresolvedCounterparty)
			}
			thirdParty = acc.ID
		}

		lines := Lines(t, txn, thirdParty)
		if t.ClientCeiling != nil {
			if err := checkCeiling(ctx, tx, *t.ClientCeiling, thirdParty, lines); err != nil {
				return err
			}
		}

		label := strings.TrimSpace(txn.Label)
		if label == "" {
			label = t.Label
		}
		tplID := t.ID
		created, err = s.entries.CreateInTx(ctx, tx, entry.Input{
			Label:      label,
			Date:       txn.Date,
			JournalID:  t.JournalID,
			Reference:  txn.Reference,
			Lines:      lines,
			Actor:      actor,
			TemplateID: &tplID,
		})
		return err
	})
	if err != nil {
		return ledger.Entry{}, err
	}
	s.log.Info("operation posted", "template_id", id.String(), "entry_id", created.ID.String(), "number", created.Number, "actor", actor)
	return created, nil
}

func needsThirdParty(t ledger.OperationTemplate) bool {
	if !t.PrincipalStatic {
		return true
	}
	for _, r := range t.Rules {
		if r.ThirdParty {
			return true
		}
	}
	return false
}

// Lines computes the entry lines for txn. Rule amounts are rounded half-even;
// the rounding residual goes to the last nonzero rule line on the short side,
// or comes off the last rule line on the long side when the short side has no
// rule line. Zero lines are dropped.
func Lines(t ledger.OperationTemplate, txn ledger.Transaction, thirdParty uuid.UUID) []entry.LineInput {
	type line struct {
		account uuid.UUID
		side    ledger.Side
		amount  int64
		rule    bool
	}
	principal := t.PrincipalAccountID
	if !t.PrincipalStatic {
		principal = thirdParty
	}
	out := []line{{account: principal, side: t.PrincipalSide, amount: txn.Base(t.PrincipalBasis)}}
	for _, r := range t.Rules {
		acc := r.AccountID
		if r.ThirdParty {
			acc = thirdParty
		}
		amt := decimal.NewFromInt(txn.Base(r.Basis)).Mul(r.EffectiveRatio()).RoundBank(0).IntPart()
		out = append(out, line{account: acc, side: r.Side, amount: amt, rule: true})
	}

	var debit, credit int64
	for _, l := range out {
		if l.side == ledger.SideDebit {
			debit += l.amount
		} else {
			credit += l.amount
		}
	}
	if diff := debit - credit; diff != 0 {
		short, gap := ledger.SideCredit, diff
		if diff < 0 {
			short, gap = ledger.SideDebit, -diff
		}
		target := -1
		for i := len(out) - 1; i >= 0; i-- {
			if !out[i].rule || out[i].side != short {
				continue
			}
			if target < 0 {
				target = i
			}
			if out[i].amount != 0 {
				target = i
				break
			}
		}
		if target >= 0 {
			out[target].amount += gap
		} else {
			for i := len(out) - 1; i >= 0; i-- {
				if out[i].rule && out[i].side == short.Opposite() && out[i].amount >= gap {
					out[i].amount -= gap
					break
				}
			}
		}
	}

	res := make([]entry.LineInput, 0, len(out))
	for _, l := range out {
		if l.amount == 0 {
			continue
		}
		in := entry.LineInput{AccountID: l.account, Label: t.Label}
		if l.side == ledger.SideDebit {
			in.Debit = l.amount
		} else {
			in.Credit = l.amount
		}
		res = append(res, in)
	}
	return res
}

// checkCeiling rejects a posting that would raise the third-party balance above
// the ceiling. Postings that lower the balance always pass. The account row stays
// locked until commit so concurrent postings for one client are checked in turn.
func checkCeiling(ctx context.Context, tx storage.Tx, ceiling int64, account uuid.UUID, lines []entry.LineInput) error {
	var effect int64
	for _, l := range lines {
		if l.AccountID == account {
			effect += l.Debit - l.Credit
		}
	}
	if effect <= 0 {
		return nil
	}
	if _, err := tx.AccountForUpdate(ctx, account); err != nil {
		return err
	}
	bal, err := tx.AccountBalance(ctx, account)
	if err != nil {
		return err
	}
	if bal+effect > ceiling {
		return fmt.Errorf("balance %d + %d over ceiling %d: %w", bal, effect, ceiling, errs.ErrCeilingExceeded)
	}
	return nil
}
