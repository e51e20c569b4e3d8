package v1

import (
    "net/http"

    "github.com/google/uuid"

    "github.com/tinoosan/compta/internal/ledger"
    "github.com/tinoosan/compta/internal/service/journal"
)

func (s *Server) postJournal(w http.ResponseWriter, r *http.Request) {
    var req postJournalRequest
    if !decodeJSON(w, r, &req) { return }
    j := ledger.Journal{Code: req.Code, Label: req.Label, Type: req.Type, Active: true}
    if req.Active != nil { j.Active = *req.Active }
    j, err := s.journals.Create(r.Context(), j)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusCreated, toJournalResponse(j))
}

func (s *Server) listJournals(w http.ResponseWriter, r *http.Request) {
    list, err := s.journals.List(r.Context())
    if err != nil { s.fail(w, r, err); return }
    items := make([]journalResponse, 0, len(list))
    for _, j := range list { items = append(items, toJournalResponse(j)) }
    toJSON(w, http.StatusOK, struct {
        Items []journalResponse `json:"items"`
    }{items})
}

func (s *Server) getJournal(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "journal")
    if !ok { return }
    j, err := s.journals.Get(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, toJournalResponse(j))
}

func (s *Server) patchJournal(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "journal")
    if !ok { return }
    var req patchJournalRequest
    if !decodeJSON(w, r, &req) { return }
    ch, err := s.journals.Update(r.Context(), id, journal.Patch{Code: req.Code, Label: req.Label, Type: req.Type, Active: req.Active})
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, struct {
        Before journalResponse `json:"before"`
        After  journalResponse `json:"after"`
    }{toJournalResponse(ch.Before), toJournalResponse(ch.After)})
}

func (s *Server) deleteJournal(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "journal")
    if !ok { return }
    j, err := s.journals.Delete(r.Context(), id)
    if err != nil { s.fail(w, r, err); return }
    toJSON(w, http.StatusOK, toJournalResponse(j))
}

// journalLabels resolves journal labels for entry responses. A lookup failure
// degrades to empty labels rather than failing the read.
func (s *Server) journalLabels(r *http.Request) map[uuid.UUID]string {
    list, err := s.journals.List(r.Context())
    if err != nil {
        s.log.Warn("journal labels unavailable", "err", err)
        return nil
    }
    out := make(map[uuid.UUID]string, len(list))
    for _, j := range list { out[j.ID] = j.Label }
    return out
}
