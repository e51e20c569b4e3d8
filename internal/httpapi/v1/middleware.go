package v1

import (
    "context"
    "net/http"
    "strconv"
    "time"

    chi "github.com/go-chi/chi/v5"
    "github.com/google/uuid"

    "github.com/tinoosan/compta/internal/ledger"
)

type ctxKey string

const ctxKeyEntryFilter ctxKey = "validatedEntryFilter"

// validateEntryFilter parses the entry filter query (period_id, journal_id,
// validated, from, to) and stores it in the request context.
func (s *Server) validateEntryFilter() func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            q := r.URL.Query()
            var f ledger.EntryFilter
            var err error
            if raw := q.Get("period_id"); raw != "" {
                if f.PeriodID, err = uuid.Parse(raw); err != nil { badRequest(w, "invalid period_id"); return }
            }
            if raw := q.Get("journal_id"); raw != "" {
                if f.JournalID, err = uuid.Parse(raw); err != nil { badRequest(w, "invalid journal_id"); return }
            }
            if raw := q.Get("validated"); raw != "" {
                v, err := strconv.ParseBool(raw)
                if err != nil { badRequest(w, "invalid validated"); return }
                f.Validated = &v
            }
            for _, p := range []struct {
                name string
                dst  **time.Time
            }{{"from", &f.From}, {"to", &f.To}} {
                raw := q.Get(p.name)
                if raw == "" { continue }
                t, err := parseDate(raw)
                if err != nil { badRequest(w, "invalid "+p.name); return }
                *p.dst = &t
            }
            ctx := context.WithValue(r.Context(), ctxKeyEntryFilter, f)
            next.ServeHTTP(w, r.WithContext(ctx))
        })
    }
}

func entryFilterFrom(r *http.Request) ledger.EntryFilter {
    f, _ := r.Context().Value(ctxKeyEntryFilter).(ledger.EntryFilter)
    return f
}

// pathID parses the {id} URL parameter, writing 400 when it is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil {
        badRequest(w, "invalid "+what+" id")
        return uuid.Nil, false
    }
    return id, true
}
