package v1

import (
    "context"
    "net/http"
    "time"
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

// readyz calls the store's Ready check, when it has one, with a short timeout.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
    rc, ok := s.store.(ReadyChecker)
    if !ok { w.WriteHeader(http.StatusOK); return }
    ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
    defer cancel()
    if err := rc.Ready(ctx); err != nil {
        s.log.Warn("readiness check failed", "err", err)
        w.WriteHeader(http.StatusServiceUnavailable)
        return
    }
    w.WriteHeader(http.StatusOK)
}
