package v1

import (
    "encoding/json"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/govalues/money"
    "github.com/shopspring/decimal"

    "github.com/tinoosan/compta/internal/ledger"
)

const dateLayout = "2006-01-02"

// date is a calendar day on the wire. It accepts "2006-01-02" or RFC 3339.
type date struct{ time.Time }

func (d *date) UnmarshalJSON(b []byte) error {
    var raw string
    if err := json.Unmarshal(b, &raw); err != nil { return err }
    t, err := parseDate(raw)
    if err != nil { return err }
    d.Time = t
    return nil
}

func (d date) MarshalJSON() ([]byte, error) { return json.Marshal(d.Format(dateLayout)) }

func parseDate(raw string) (time.Time, error) {
    raw = strings.TrimSpace(raw)
    if t, err := time.Parse(dateLayout, raw); err == nil { return t, nil }
    t, err := time.Parse(time.RFC3339, raw)
    if err != nil { return time.Time{}, err }
    return ledger.Day(t), nil
}

func datePtr(t *time.Time) *date {
    if t == nil { return nil }
    return &date{*t}
}

// formatMinor renders minor units as a decimal string in the book currency.
func (s *Server) formatMinor(units int64) string {
    amt, err := money.NewAmountFromMinorUnits(s.currency, units)
    if err != nil { return "" }
    return amt.Decimal().String()
}

// Accounts

type postAccountRequest struct {
    Number     string             `json:"number"`
    Name       string             `json:"name"`
    Type       ledger.AccountType `json:"type,omitempty"`
    AllowEntry bool               `json:"allow_entry"`
    Static     bool               `json:"static"`
    Active     *bool              `json:"active,omitempty"`
}

type patchAccountRequest struct {
    Number     *string             `json:"number"`
    Name       *string             `json:"name"`
    Type       *ledger.AccountType `json:"type"`
    AllowEntry *bool               `json:"allow_entry"`
    Static     *bool               `json:"static"`
    Active     *bool               `json:"active"`
}

type accountResponse struct {
    ID         uuid.UUID          `json:"id"`
    Number     string             `json:"number"`
    Name       string             `json:"name"`
    Type       ledger.AccountType `json:"type"`
    NormalSide ledger.Side        `json:"normal_side"`
    AllowEntry bool               `json:"allow_entry"`
    Static     bool               `json:"static"`
    Active     bool               `json:"active"`
}

func toAccountResponse(a ledger.Account) accountResponse {
    return accountResponse{ID: a.ID, Number: a.Number, Name: a.Name, Type: a.Type, NormalSide: a.Type.NormalSide(),
        AllowEntry: a.AllowEntry, Static: a.Static, Active: a.Active}
}

// Journals

type postJournalRequest struct {
    Code   string             `json:"code"`
    Label  string             `json:"label"`
    Type   ledger.JournalType `json:"type"`
    Active *bool              `json:"active,omitempty"`
}

type patchJournalRequest struct {
    Code   *string             `json:"code"`
    Label  *string             `json:"label"`
    Type   *ledger.JournalType `json:"type"`
    Active *bool               `json:"active"`
}

type journalResponse struct {
    ID         uuid.UUID          `json:"id"`
    Code       string             `json:"code"`
    Label      string             `json:"label"`
    Type       ledger.JournalType `json:"type"`
    Active     bool               `json:"active"`
    EntryCount int                `json:"entry_count"`
}

func toJournalResponse(j ledger.Journal) journalResponse {
    return journalResponse{ID: j.ID, Code: j.Code, Label: j.Label, Type: j.Type, Active: j.Active, EntryCount: j.EntryCount}
}

// Periods

type postPeriodRequest struct {
    Code  string `json:"code,omitempty"`
    Start date   `json:"start"`
    End   date   `json:"end"`
}

type periodResponse struct {
    ID       uuid.UUID  `json:"id"`
    Code     string     `json:"code"`
    Start    date       `json:"start"`
    End      date       `json:"end"`
    Closed   bool       `json:"closed"`
    ClosedAt *time.Time `json:"closed_at,omitempty"`
}

func toPeriodResponse(p ledger.FiscalPeriod) periodResponse {
    return periodResponse{ID: p.ID, Code: p.Code, Start: date{p.Start}, End: date{p.End}, Closed: p.Closed, ClosedAt: p.ClosedAt}
}

func toPeriodResponses(ps []ledger.FiscalPeriod) []periodResponse {
    out := make([]periodResponse, 0, len(ps))
    for _, p := range ps { out = append(out, toPeriodResponse(p)) }
    return out
}

// Entries

type entryLineRequest struct {
    AccountID   uuid.UUID `json:"account_id"`
    Label       string    `json:"label,omitempty"`
    DebitMinor  int64     `json:"debit_minor"`
    CreditMinor int64     `json:"credit_minor"`
    Notes       string    `json:"notes,omitempty"`
}

type postEntryRequest struct {
    Label     string             `json:"label"`
    Date      date               `json:"date"`
    JournalID uuid.UUID          `json:"journal_id"`
    Reference string             `json:"reference,omitempty"`
    Notes     string             `json:"notes,omitempty"`
    Lines     []entryLineRequest `json:"lines"`
}

type patchEntryRequest struct {
    Label     *string             `json:"label"`
    Date      *date               `json:"date"`
    JournalID *uuid.UUID          `json:"journal_id"`
    Reference *string             `json:"reference"`
    Notes     *string             `json:"notes"`
    Lines     *[]entryLineRequest `json:"lines"`
}

type lineResponse struct {
    ID          uuid.UUID `json:"id"`
    AccountID   uuid.UUID `json:"account_id"`
    Label       string    `json:"label,omitempty"`
    DebitMinor  int64     `json:"debit_minor"`
    CreditMinor int64     `json:"credit_minor"`
    Debit       string    `json:"debit"`
    Credit      string    `json:"credit"`
    Notes       string    `json:"notes,omitempty"`
}

type entryResponse struct {
    ID           uuid.UUID      `json:"id"`
    Number       int64          `json:"number"`
    Label        string         `json:"label"`
    Date         date           `json:"date"`
    JournalID    uuid.UUID      `json:"journal_id"`
    JournalLabel string         `json:"journal_label"`
    PeriodID     uuid.UUID      `json:"period_id"`
    TotalDebit   string         `json:"total_debit"`
    TotalCredit  string         `json:"total_credit"`
    Validated    bool           `json:"validated"`
    ValidatedAt  *time.Time     `json:"validated_at,omitempty"`
    ValidatedBy  string         `json:"validated_by,omitempty"`
    Reference    string         `json:"reference,omitempty"`
    Notes        string         `json:"notes,omitempty"`
    TemplateID   *uuid.UUID     `json:"template_id,omitempty"`
    CreatedBy    string         `json:"created_by,omitempty"`
    UpdatedBy    string         `json:"updated_by,omitempty"`
    CreatedAt    time.Time      `json:"created_at"`
    UpdatedAt    time.Time      `json:"updated_at"`
    Lines        []lineResponse `json:"lines"`
}

type listEntriesResponse struct {
    Items []entryResponse `json:"items"`
}

type entryChangeResponse struct {
    Before entryResponse `json:"before"`
    After  entryResponse `json:"after"`
}

// toEntryResponse renders e. labels maps journal ids to labels; a journal
// missing from it renders an empty label.
func (s *Server) toEntryResponse(e ledger.Entry, labels map[uuid.UUID]string) entryResponse {
    out := entryResponse{
        ID: e.ID, Number: e.Number, Label: e.Label, Date: date{e.Date},
        JournalID: e.JournalID, JournalLabel: labels[e.JournalID], PeriodID: e.PeriodID,
        TotalDebit: s.formatMinor(e.TotalDebit), TotalCredit: s.formatMinor(e.TotalCredit),
        Validated: e.Validated, ValidatedAt: e.ValidatedAt, ValidatedBy: e.ValidatedBy,
        Reference: e.Reference, Notes: e.Notes, TemplateID: e.TemplateID,
        CreatedBy: e.CreatedBy, UpdatedBy: e.UpdatedBy, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
        Lines: make([]lineResponse, 0, len(e.Lines)),
    }
    for _, ln := range e.Lines {
        out.Lines = append(out.Lines, lineResponse{
            ID: ln.ID, AccountID: ln.AccountID, Label: ln.Label, Notes: ln.Notes,
            DebitMinor: ln.Debit, CreditMinor: ln.Credit,
            Debit: s.formatMinor(ln.Debit), Credit: s.formatMinor(ln.Credit),
        })
    }
    return out
}

// Trial balance

type trialBalanceRow struct {
    AccountID   uuid.UUID `json:"account_id"`
    Number      string    `json:"number"`
    Name        string    `json:"name"`
    DebitMinor  int64     `json:"debit_minor"`
    CreditMinor int64     `json:"credit_minor"`
    Debit       string    `json:"debit"`
    Credit      string    `json:"credit"`
    Net         string    `json:"net"`
}

type trialBalanceResponse struct {
    Currency    string            `json:"currency"`
    Rows        []trialBalanceRow `json:"rows"`
    TotalDebit  string            `json:"total_debit"`
    TotalCredit string            `json:"total_credit"`
    Balanced    bool              `json:"balanced"`
}

// Operation templates

type ruleRequest struct {
    AccountID     uuid.UUID          `json:"account_id,omitempty"`
    ThirdParty    bool               `json:"third_party"`
    Basis         ledger.Basis       `json:"basis"`
    JournalFamily ledger.JournalType `json:"journal_family,omitempty"`
    Side          ledger.Side        `json:"side"`
    Ratio         decimal.Decimal    `json:"ratio"`
}

type templateRequest struct {
    Label              string             `json:"label"`
    PaymentMode        ledger.PaymentMode `json:"payment_mode"`
    PrincipalAccountID uuid.UUID          `json:"principal_account_id,omitempty"`
    PrincipalStatic    bool               `json:"principal_static"`
    PrincipalSide      ledger.Side        `json:"principal_side"`
    PrincipalBasis     ledger.Basis       `json:"principal_basis"`
    JournalID          uuid.UUID          `json:"journal_id"`
    ClientCeilingMinor *int64             `json:"client_ceiling_minor,omitempty"`
    Active             *bool              `json:"active,omitempty"`
    Rules              []ruleRequest      `json:"rules"`
}

func (req templateRequest) domain() ledger.OperationTemplate {
    t := ledger.OperationTemplate{
        Label: req.Label, PaymentMode: req.PaymentMode,
        PrincipalAccountID: req.PrincipalAccountID, PrincipalStatic: req.PrincipalStatic,
        PrincipalSide: req.PrincipalSide, PrincipalBasis: req.PrincipalBasis,
        JournalID: req.JournalID, ClientCeiling: req.ClientCeilingMinor, Active: true,
        Rules: make([]ledger.CounterpartyRule, 0, len(req.Rules)),
    }
    if req.Active != nil { t.Active = *req.Active }
    for _, r := range req.Rules {
        t.Rules = append(t.Rules, ledger.CounterpartyRule{AccountID: r.AccountID, ThirdParty: r.ThirdParty, Basis: r.Basis,
            JournalFamily: r.JournalFamily, Side: r.Side, Ratio: r.Ratio})
    }
    return t
}

type templateResponse struct {
    templateRequest
    ID          uuid.UUID `json:"id"`
    Active      bool      `json:"active"`
    Balanceable bool      `json:"balanceable"`
}

type templateChangeResponse struct {
    Before templateResponse `json:"before"`
    After  templateResponse `json:"after"`
}

type postOperationRequest struct {
    Date        date   `json:"date"`
    Label       string `json:"label"`
    Reference   string `json:"reference,omitempty"`
    AmountMinor int64  `json:"amount_minor"`
    TaxMinor    int64  `json:"tax_minor"`
    ThirdParty  string `json:"third_party,omitempty"`
}

// Fiscal years

type postYearRequest struct {
    Name  string `json:"name"`
    Start date   `json:"start"`
    End   date   `json:"end"`
}

type yearResponse struct {
    ID       uuid.UUID         `json:"id"`
    Name     string            `json:"name"`
    Start    date              `json:"start"`
    End      date              `json:"end"`
    Status   ledger.YearStatus `json:"status"`
    ClosedAt *time.Time        `json:"closed_at,omitempty"`
}

func toYearResponse(y ledger.FiscalYear) yearResponse {
    return yearResponse{ID: y.ID, Name: y.Name, Start: date{y.Start}, End: date{y.End}, Status: y.Status, ClosedAt: y.ClosedAt}
}

type yearChangeResponse struct {
    Before yearResponse `json:"before"`
    After  yearResponse `json:"after"`
}

type yearClosureResponse struct {
    yearChangeResponse
    ClosedPeriods []periodResponse `json:"closed_periods"`
}

type orderItemRequest struct {
    ProductID string `json:"product_id"`
    Quantity  int64  `json:"quantity"`
}

type orderRequest struct {
    ID            string             `json:"id"`
    Date          date               `json:"date"`
    NetToPayMinor int64              `json:"net_to_pay_minor"`
    Items         []orderItemRequest `json:"items"`
}

type summaryRequest struct {
    Orders []orderRequest `json:"orders"`
    TopN   *int           `json:"top_n,omitempty"`
}

type productQuantityResponse struct {
    ProductID string `json:"product_id"`
    Quantity  int64  `json:"quantity"`
}

type summaryResponse struct {
    YearID       uuid.UUID                 `json:"year_id"`
    RevenueMinor int64                     `json:"revenue_minor"`
    Revenue      string                    `json:"revenue"`
    OrderCount   int                       `json:"order_count"`
    TopProducts  []productQuantityResponse `json:"top_products"`
}

type balancesResponse struct {
    YearID   uuid.UUID `json:"year_id"`
    Revenue  string    `json:"revenue"`
    Expenses string    `json:"expenses"`
    Result   string    `json:"result"`
}
