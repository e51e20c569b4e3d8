package v1

import (
    "net/http"

    "github.com/tinoosan/compta/internal/ledger"
    "github.com/tinoosan/compta/internal/service/account"
)

// postAccount handles POST /v1/accounts. Type may be omitted; it is then
// inferred from the account number class.
func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
    var req postAccountRequest
    if !decodeJSON(w, r, &req) { return }
    a := ledger.Account{Number: req.Number, Name: req.Name, Type: req.Type, AllowEntry: req.AllowEntry, Static: req.Static, Active: true}
    if req.Active != nil { a.Active = *req.Active }
    a, err := s.accounts.Create(r.Context(), a)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusCreated, toAccountResponse(a))
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
    list, err := s.accounts.List(r.Context())
    if err != nil { s.fail(w, r, err); return }
    items := make([]accountResponse, 0, len(list))
    for _, a := range list { items = append(items, toAccountResponse(a)) }
    toJSON(w, http.StatusOK, struct {
        Items []accountResponse `json:"items"`
    }{items})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "account")
    if !ok { return }
    a, err := s.accounts.Get(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, toAccountResponse(a))
}

// patchAccount handles PATCH /v1/accounts/{id} and returns the before/after pair.
func (s *Server) patchAccount(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "account")
    if !ok { return }
    var req patchAccountRequest
    if !decodeJSON(w, r, &req) { return }
    ch, err := s.accounts.Update(r.Context(), id, account.Patch{
        Number: req.Number, Name: req.Name, Type: req.Type,
        AllowEntry: req.AllowEntry, Static: req.Static, Active: req.Active,
    })
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, struct {
        Before accountResponse `json:"before"`
        After  accountResponse `json:"after"`
    }{toAccountResponse(ch.Before), toAccountResponse(ch.After)})
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "account")
    if !ok { return }
    a, err := s.accounts.Delete(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, toAccountResponse(a))
}
