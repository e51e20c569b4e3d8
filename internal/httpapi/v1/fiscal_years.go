package v1

import (
    "net/http"

    "github.com/tinoosan/compta/internal/ledger"
)

func (s *Server) postYear(w http.ResponseWriter, r *http.Request) {
    var req postYearRequest
    if !decodeJSON(w, r, &req) { return }
    y, err := s.years.Create(r.Context(), ledger.FiscalYear{Name: req.Name, Start: req.Start.Time, End: req.End.Time})
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusCreated, toYearResponse(y))
}

func (s *Server) listYears(w http.ResponseWriter, r *http.Request) {
    list, err := s.years.List(r.Context())
    if err != nil { s.fail(w, r, err); return }
    items := make([]yearResponse, 0, len(list))
    for _, y := range list { items = append(items, toYearResponse(y)) }
    toJSON(w, http.StatusOK, struct {
        Items []yearResponse `json:"items"`
    }{items})
}

func (s *Server) getYear(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "fiscal year")
    if !ok { return }
    y, err := s.years.Get(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, toYearResponse(y))
}

func (s *Server) activateYear(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "fiscal year")
    if !ok { return }
    ch, err := s.years.Activate(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    yearTransitionsTotal.WithLabelValues(string(ledger.YearActive)).Inc()
    toJSON(w, http.StatusOK, yearChangeResponse{Before: toYearResponse(ch.Before), After: toYearResponse(ch.After)})
}

// closeYear handles POST /v1/fiscal-years/{id}/close. The response lists the
// periods the close shut as well.
func (s *Server) closeYear(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "fiscal year")
    if !ok { return }
    c, err := s.years.Close(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    yearTransitionsTotal.WithLabelValues(string(ledger.YearClosed)).Inc()
    periodsClosedTotal.Add(float64(len(c.ClosedPeriods)))
    toJSON(w, http.StatusOK, yearClosureResponse{
        yearChangeResponse: yearChangeResponse{Before: toYearResponse(c.Year.Before), After: toYearResponse(c.Year.After)},
        ClosedPeriods:      toPeriodResponses(c.ClosedPeriods),
    })
}

// yearSummary handles POST /v1/fiscal-years/{id}/summary. Orders live outside
// the ledger, so the caller posts them in the body.
func (s *Server) yearSummary(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "fiscal year")
    if !ok { return }
    var req summaryRequest
    if !decodeJSON(w, r, &req) { return }
    topN := s.topN
    if req.TopN != nil { topN = *req.TopN }
    orders := make([]ledger.Order, 0, len(req.Orders))
    for _, o := range req.Orders {
        ord := ledger.Order{ID: o.ID, Date: o.Date.Time, NetToPay: o.NetToPayMinor, Items: make([]ledger.OrderItem, 0, len(o.Items))}
        for _, it := range o.Items { ord.Items = append(ord.Items, ledger.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity}) }
        orders = append(orders, ord)
    }
    sum, err := s.years.Summary(r.Context(), id, orders, topN)
    if err != nil { s.fail(w, r, err); return }
    resp := summaryResponse{
        YearID: sum.YearID, RevenueMinor: sum.Revenue, Revenue: s.formatMinor(sum.Revenue),
        OrderCount: sum.OrderCount, TopProducts: make([]productQuantityResponse, 0, len(sum.TopProducts)),
    }
    for _, p := range sum.TopProducts {
        resp.TopProducts = append(resp.TopProducts, productQuantityResponse{ProductID: p.ProductID, Quantity: p.Quantity})
    }
    toJSON(w, http.StatusOK, resp)
}

func (s *Server) yearBalances(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "fiscal year")
    if !ok { return }
    b, err := s.years.Balances(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, balancesResponse{
        YearID: b.YearID, Revenue: s.formatMinor(b.Revenue), Expenses: s.formatMinor(b.Expenses), Result: s.formatMinor(b.Result()),
    })
}

func (s *Server) yearPeriods(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "fiscal year")
    if !ok { return }
    list, err := s.years.Periods(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, struct {
        Items []periodResponse `json:"items"`
    }{toPeriodResponses(list)})
}
