package v1

import (
    "fmt"
    "net/http"

    "github.com/tinoosan/compta/internal/errs"
    "github.com/tinoosan/compta/internal/service/entry"
)

func toLineInputs(lines []entryLineRequest) []entry.LineInput {
    out := make([]entry.LineInput, 0, len(lines))
    for _, ln := range lines {
        out = append(out, entry.LineInput{AccountID: ln.AccountID, Label: ln.Label, Debit: ln.DebitMinor, Credit: ln.CreditMinor, Notes: ln.Notes})
    }
    return out
}

// postEntry handles POST /v1/entries. A repeated Idempotency-Key returns the
// entry created by the first request with 200.
func (s *Server) postEntry(w http.ResponseWriter, r *http.Request) {
    var req postEntryRequest
    if !decodeJSON(w, r, &req) { return }
    key := s.idempotencyKey(r, "entries")
    if s.replay(w, r, key) { return }
    e, err := s.entries.CreateEntry(r.Context(), entry.Input{
        Label: req.Label, Date: req.Date.Time, JournalID: req.JournalID,
        Reference: req.Reference, Notes: req.Notes, Lines: toLineInputs(req.Lines),
        Actor: actorFrom(r),
    })
    if err != nil { s.fail(w, r, err); return }
    s.remember(r, key, e.ID)
    entryEventsTotal.WithLabelValues("created").Inc()
    toJSON(w, http.StatusCreated, s.toEntryResponse(e, s.journalLabels(r)))
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
    list, err := s.entries.List(r.Context(), entryFilterFrom(r))
    if err != nil { s.fail(w, r, err); return }
    labels := s.journalLabels(r)
    resp := listEntriesResponse{Items: make([]entryResponse, 0, len(list))}
    for _, e := range list { resp.Items = append(resp.Items, s.toEntryResponse(e, labels)) }
    toJSON(w, http.StatusOK, resp)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "entry")
    if !ok { return }
    e, err := s.entries.Get(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, s.toEntryResponse(e, s.journalLabels(r)))
}

// patchEntry handles PATCH /v1/entries/{id}; lines, when given, replace every line.
func (s *Server) patchEntry(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "entry")
    if !ok { return }
    var req patchEntryRequest
    if !decodeJSON(w, r, &req) { return }
    p := entry.Patch{Label: req.Label, JournalID: req.JournalID, Reference: req.Reference, Notes: req.Notes, Actor: actorFrom(r)}
    if req.Date != nil {
        d := req.Date.Time
        p.Date = &d
    }
    if req.Lines != nil {
        lines := toLineInputs(*req.Lines)
        p.Lines = &lines
    }
    ch, err := s.entries.UpdateEntry(r.Context(), id, p)
    if err != nil { s.fail(w, r, err); return }
    labels := s.journalLabels(r)
    toJSON(w, http.StatusOK, entryChangeResponse{Before: s.toEntryResponse(ch.Before, labels), After: s.toEntryResponse(ch.After, labels)})
}

func (s *Server) validateEntry(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "entry")
    if !ok { return }
    actor := actorFrom(r)
    if actor == "" {
        s.fail(w, r, fmt.Errorf("validating an entry needs an actor: %w", errs.ErrForbidden))
        return
    }
    ch, err := s.entries.ValidateEntry(r.Context(), id, actor)
    if err != nil { s.fail(w, r, err); return }
    entryEventsTotal.WithLabelValues("validated").Inc()
    labels := s.journalLabels(r)
    toJSON(w, http.StatusOK, entryChangeResponse{Before: s.toEntryResponse(ch.Before, labels), After: s.toEntryResponse(ch.After, labels)})
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "entry")
    if !ok { return }
    e, err := s.entries.DeleteEntry(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    entryEventsTotal.WithLabelValues("deleted").Inc()
    toJSON(w, http.StatusOK, s.toEntryResponse(e, s.journalLabels(r)))
}

// trialBalance handles GET /v1/trial-balance with the entry filter query.
func (s *Server) trialBalance(w http.ResponseWriter, r *http.Request) {
    tb, err := s.entries.TrialBalance(r.Context(), entryFilterFrom(r))
    if err != nil { s.fail(w, r, err); return }
    resp := trialBalanceResponse{
        Currency:    s.currency,
        Rows:        make([]trialBalanceRow, 0, len(tb.Rows)),
        TotalDebit:  s.formatMinor(tb.TotalDebit),
        TotalCredit: s.formatMinor(tb.TotalCredit),
        Balanced:    tb.Balanced(),
    }
    for _, row := range tb.Rows {
        resp.Rows = append(resp.Rows, trialBalanceRow{
            AccountID: row.AccountID, Number: row.Number, Name: row.Name,
            DebitMinor: row.Debit, CreditMinor: row.Credit,
            Debit: s.formatMinor(row.Debit), Credit: s.formatMinor(row.Credit), Net: s.formatMinor(row.Net()),
        })
    }
    toJSON(w, http.StatusOK, resp)
}
