// Package operation turns front-office transactions into ledger entries through
// operation templates. A template names a principal account and a set of
// counterparty rules; posting computes one line per rule and hands the lines to
// the entry engine in the same transaction.
package operation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tinoosan/compta/internal/errs"
	"github.com/tinoosan/compta/internal/ledger"
	"github.com/tinoosan/compta/internal/service/entry"
	"github.com/tinoosan/compta/internal/storage"
)

type Service interface {
	Create(ctx context.Context, t ledger.OperationTemplate) (ledger.OperationTemplate, error)
	// Update replaces every field of the template.
	Update(ctx context.Context, id uuid.UUID, t ledger.OperationTemplate) (ledger.Change[ledger.OperationTemplate], error)
	Delete(ctx context.Context, id uuid.UUID) (ledger.OperationTemplate, error)
	Get(ctx context.Context, id uuid.UUID) (ledger.OperationTemplate, error)
	List(ctx context.Context) ([]ledger.OperationTemplate, error)
	// Post creates a draft entry for txn from the template.
	Post(ctx context.Context, id uuid.UUID, txn ledger.Transaction, actor string) (ledger.Entry, error)
}

// Option configures the service.
type Option func(*service)

// WithResolver replaces the default third-party resolver.
func WithResolver(r ThirdPartyResolver) Option {
	return func(s *service) { s.resolver = r }
}

type service struct {
	store    storage.Store
	entries  entry.Service
	resolver ThirdPartyResolver
	log      *slog.Logger
}

func New(store storage.Store, entries entry.Service, logger *slog.Logger, opts ...Option) Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &service{store: store, entries: entries, resolver: NumberResolver{}, log: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, t ledger.OperationTemplate) (ledger.OperationTemplate, error) {
	t.ID = uuid.New()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		if t, err = check(ctx, tx, t); err != nil {
			return err
		}
		return tx.InsertTemplate(ctx, t)
	})
	if err != nil {
		return ledger.OperationTemplate{}, err
	}
	return t, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, t ledger.OperationTemplate) (ledger.Change[ledger.OperationTemplate], error) {
	var ch ledger.Change[ledger.OperationTemplate]
	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		before, err := tx.TemplateByID(ctx, id)
		if err != nil {
			return err
		}
		t.ID = id
		after, err := check(ctx, tx, t)
		if err != nil {
			return err
		}
		if err := tx.UpdateTemplate(ctx, after); err != nil {
			return err
		}
		ch = ledger.Change[ledger.OperationTemplate]{Before: before, After: after}
		return nil
	})
	return ch, err
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) (ledger.OperationTemplate, error) {
	var removed ledger.OperationTemplate
	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		t, err := tx.TemplateByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteTemplate(ctx, id); err != nil {
			return err
		}
		removed = t
		return nil
	})
	return removed, err
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.OperationTemplate, error) {
	return s.store.TemplateByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]ledger.OperationTemplate, error) {
	return s.store.ListTemplates(ctx)
}

// check normalizes t and verifies its references and that its rules balance.
func check(ctx context.Context, r storage.Reader, t ledger.OperationTemplate) (ledger.OperationTemplate, error) {
	t.Label = strings.TrimSpace(t.Label)
	if t.Label == "" {
		return t, errs.Invalid("label is required")
	}
	if !t.PaymentMode.Valid() {
		return t, errs.Invalid("invalid payment mode")
	}
	if !t.PrincipalSide.Valid() {
		return t, errs.Invalid("invalid principal side")
	}
	if !t.PrincipalBasis.Valid() {
		return t, errs.Invalid("invalid principal basis")
	}
	if t.ClientCeiling != nil && *t.ClientCeiling < 0 {
		return t, errs.Invalid("client ceiling must not be negative")
	}
	if _, err := r.JournalByID(ctx, t.JournalID); err != nil {
		if errs.KindOf(err) == errs.ErrNotFound {
			return t, errs.ErrUnknownJournal
		}
		return t, err
	}
	if t.PrincipalStatic {
		if err := postable(ctx, r, t.PrincipalAccountID, "principal"); err != nil {
			return t, err
		}
	} else {
		t.PrincipalAccountID = uuid.Nil
	}

	tiers := !t.PrincipalStatic
	rules := make([]ledger.CounterpartyRule, len(t.Rules))
	for i, rule := range t.Rules {
		if !rule.Side.Valid() {
			return t, errs.Invalid(fmt.Sprintf("rule[%d]: invalid side", i))
		}
		if !rule.Basis.Valid() {
			return t, errs.Invalid(fmt.Sprintf("rule[%d]: invalid basis", i))
		}
		if rule.JournalFamily != "" && !rule.JournalFamily.Valid() {
			return t, errs.Invalid(fmt.Sprintf("rule[%d]: invalid journal family", i))
		}
		if rule.Ratio.IsNegative() {
			return t, errs.Invalid(fmt.Sprintf("rule[%d]: ratio must not be negative", i))
		}
		if rule.ThirdParty {
			rule.AccountID = uuid.Nil
			tiers = true
		} else if err := postable(ctx, r, rule.AccountID, fmt.Sprintf("rule[%d]", i)); err != nil {
			return t, err
		}
		rules[i] = rule
	}
	t.Rules = rules
	if t.ClientCeiling != nil && !tiers {
		return t, errs.Invalid("client ceiling needs a third-party account")
	}
	if !Balanceable(t) {
		return t, fmt.Errorf("template %q: %w", t.Label, errs.ErrUnbalanceableTemplate)
	}
	return t, nil
}

func postable(ctx context.Context, r storage.Reader, id uuid.UUID, what string) error {
	acc, err := r.AccountByID(ctx, id)
	if err != nil {
		if errs.KindOf(err) == errs.ErrNotFound {
			return fmt.Errorf("%s: %w", what, errs.ErrUnknownAccount)
		}
		return err
	}
	if !acc.AllowEntry {
		return fmt.Errorf("%s: account %s: %w", what, acc.Number, errs.ErrNonPostableAccount)
	}
	return nil
}

// Balanceable reports whether the template yields balanced lines for every
// transaction. Each line contributes its side times its basis, split into the
// tax-exclusive and tax components; both components must net to zero because a
// transaction's tax and tax-exclusive amounts vary independently.
func Balanceable(t ledger.OperationTemplate) bool {
	if len(t.Rules) == 0 {
		return false
	}
	var ht, tva decimal.Decimal
	add := func(side ledger.Side, b ledger.Basis, ratio decimal.Decimal) {
		h, v := b.Components()
		if side == ledger.SideCredit {
			ratio = ratio.Neg()
		}
		ht = ht.Add(ratio.Mul(decimal.NewFromInt(h)))
		tva = tva.Add(ratio.Mul(decimal.NewFromInt(v)))
	}
	add(t.PrincipalSide, t.PrincipalBasis, decimal.NewFromInt(1))
	for _, r := range t.Rules {
		add(r.Side, r.Basis, r.EffectiveRatio())
	}
	return ht.IsZero() && tva.IsZero()
}
