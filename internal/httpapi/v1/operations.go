package v1

import (
    "net/http"

    "github.com/tinoosan/compta/internal/ledger"
    "github.com/tinoosan/compta/internal/service/operation"
)

func toTemplateResponse(t ledger.OperationTemplate) templateResponse {
    req := templateRequest{
        Label: t.Label, PaymentMode: t.PaymentMode,
        PrincipalAccountID: t.PrincipalAccountID, PrincipalStatic: t.PrincipalStatic,
        PrincipalSide: t.PrincipalSide, PrincipalBasis: t.PrincipalBasis,
        JournalID: t.JournalID, ClientCeilingMinor: t.ClientCeiling,
        Rules: make([]ruleRequest, 0, len(t.Rules)),
    }
    for _, r := range t.Rules {
        req.Rules = append(req.Rules, ruleRequest{AccountID: r.AccountID, ThirdParty: r.ThirdParty, Basis: r.Basis,
            JournalFamily: r.JournalFamily, Side: r.Side, Ratio: r.EffectiveRatio()})
    }
    return templateResponse{templateRequest: req, ID: t.ID, Active: t.Active, Balanceable: operation.Balanceable(t)}
}

// postTemplate handles POST /v1/operations. Templates whose generated lines
// cannot balance are rejected with 422 unbalanceable_template.
func (s *Server) postTemplate(w http.ResponseWriter, r *http.Request) {
    var req templateRequest
    if !decodeJSON(w, r, &req) { return }
    t, err := s.operations.Create(r.Context(), req.domain())
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusCreated, toTemplateResponse(t))
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
    list, err := s.operations.List(r.Context())
    if err != nil { s.fail(w, r, err); return }
    items := make([]templateResponse, 0, len(list))
    for _, t := range list { items = append(items, toTemplateResponse(t)) }
    toJSON(w, http.StatusOK, struct {
        Items []templateResponse `json:"items"`
    }{items})
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "operation")
    if !ok { return }
    t, err := s.operations.Get(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, toTemplateResponse(t))
}

// putTemplate handles PUT /v1/operations/{id}, replacing the whole template.
func (s *Server) putTemplate(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "operation")
    if !ok { return }
    var req templateRequest
    if !decodeJSON(w, r, &req) { return }
    ch, err := s.operations.Update(r.Context(), id, req.domain())
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, templateChangeResponse{Before: toTemplateResponse(ch.Before), After: toTemplateResponse(ch.After)})
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "operation")
    if !ok { return }
    t, err := s.operations.Delete(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, toTemplateResponse(t))
}

// postOperation handles POST /v1/operations/{id}/post: it turns a transaction
// into a draft entry through the template.
func (s *Server) postOperation(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "operation")
    if !ok { return }
    var req postOperationRequest
    if !decodeJSON(w, r, &req) { return }
    key := s.idempotencyKey(r, "operations:"+id.String())
    if s.replay(w, r, key) { return }
    e, err := s.operations.Post(r.Context(), id, ledger.Transaction{
        Date: req.Date.Time, Label: req.Label, Reference: req.Reference,
        Amount: req.AmountMinor, Tax: req.TaxMinor, ThirdParty: req.ThirdParty,
    }, actorFrom(r))
    if err != nil { s.fail(w, r, err); return }
    s.remember(r, key, e.ID)
    operationsPostedTotal.Inc()
    entryEventsTotal.WithLabelValues("created").Inc()
    toJSON(w, http.StatusCreated, s.toEntryResponse(e, s.journalLabels(r)))
}
