package v1

import (
    "net/http"

    "github.com/tinoosan/compta/internal/ledger"
)

func (s *Server) postPeriod(w http.ResponseWriter, r *http.Request) {
    var req postPeriodRequest
    if !decodeJSON(w, r, &req) { return }
    p, err := s.periods.Create(r.Context(), ledger.FiscalPeriod{Code: req.Code, Start: req.Start.Time, End: req.End.Time})
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusCreated, toPeriodResponse(p))
}

func (s *Server) listPeriods(w http.ResponseWriter, r *http.Request) {
    list, err := s.periods.List(r.Context())
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, struct {
        Items []periodResponse `json:"items"`
    }{toPeriodResponses(list)})
}

// lookupPeriod handles GET /v1/periods/lookup?date=YYYY-MM-DD.
func (s *Server) lookupPeriod(w http.ResponseWriter, r *http.Request) {
    raw := r.URL.Query().Get("date")
    if raw == "" { badRequest(w, "date is required"); return }
    d, err := parseDate(raw)
    if err != nil { badRequest(w, "invalid date"); return }
    p, err := s.periods.PeriodFor(r.Context(), d)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, toPeriodResponse(p))
}

func (s *Server) getPeriod(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "period")
    if !ok { return }
    p, err := s.periods.Get(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, toPeriodResponse(p))
}

func (s *Server) deletePeriod(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "period")
    if !ok { return }
    p, err := s.periods.Delete(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, toPeriodResponse(p))
}

func (s *Server) closePeriod(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "period")
    if !ok { return }
    ch, err := s.periods.Close(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    periodsClosedTotal.Inc()
    toJSON(w, http.StatusOK, struct {
        Before periodResponse `json:"before"`
        After  periodResponse `json:"after"`
    }{toPeriodResponse(ch.Before), toPeriodResponse(ch.After)})
}
