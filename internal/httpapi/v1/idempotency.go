package v1

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const idempotencyHeader = "Idempotency-Key"

// idempotencyKey returns the scoped key of the request, or "" when the header
// is absent or the store keeps no keys. Scoping keeps a key reused across
// endpoints from replaying an unrelated entry.
func (s *Server) idempotencyKey(r *http.Request, scope string) string {
	k := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if k == "" || s.idem == nil {
		return ""
	}
	return scope + ":" + k
}

// replay answers the request with the entry a previous request under key
// created. It reports whether a response was written.
func (s *Server) replay(w http.ResponseWriter, r *http.Request, key string) bool {
	if key == "" {
		return false
	}
	e, ok, err := s.idem.EntryByIdempotencyKey(r.Context(), key)
	if err != nil {
		s.fail(w, r, err)
		return true
	}
	if !ok {
		return false
	}
	toJSON(w, http.StatusOK, s.toEntryResponse(e, s.journalLabels(r)))
	return true
}

// remember maps key to a newly created entry. A failure is logged: the entry
// exists and the client gets its 201.
func (s *Server) remember(r *http.Request, key string, entryID uuid.UUID) {
	if key == "" {
		return
	}
	if err := s.idem.SaveIdempotencyKey(r.Context(), key, entryID); err != nil {
		s.log.Warn("idempotency key not saved", "key", key, "entry_id", entryID, "err", err)
	}
}
