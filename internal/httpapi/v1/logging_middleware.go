package v1

import (
    "net/http"
    "runtime/debug"
    "time"

    chi "github.com/go-chi/chi/v5"
    chimw "github.com/go-chi/chi/v5/middleware"
    "log/slog"
)

// requestLogger logs basic request info at INFO and server errors at WARN.
func requestLogger(l *slog.Logger) func(next http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
            start := time.Now()
            reqID := chimw.GetReqID(r.Context())
            l.Debug("request started", "req_id", reqID, "method", r.Method, "path", r.URL.Path)

            next.ServeHTTP(ww, r)

            level := slog.LevelInfo
            if ww.Status() >= http.StatusInternalServerError { level = slog.LevelWarn }
            l.Log(r.Context(), level, "request complete",
                "req_id", reqID,
                "method", r.Method,
                "route", routePattern(r),
                "status", ww.Status(),
                "bytes", ww.BytesWritten(),
                "duration", time.Since(start).String(),
            )
        })
    }
}

// recoverer logs panics as ERROR and returns 500.
func recoverer(l *slog.Logger) func(next http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            defer func() {
                if rec := recover(); rec != nil {
                    if rec == http.ErrAbortHandler { panic(rec) }
                    l.Error("panic", "req_id", chimw.GetReqID(r.Context()), "err", rec, "stack", string(debug.Stack()))
                    writeErr(w, http.StatusInternalServerError, "internal error", "internal")
                }
            }()
            next.ServeHTTP(w, r)
        })
    }
}

// routePattern returns the matched chi pattern, or "unmatched" for 404s.
func routePattern(r *http.Request) string {
    if rc := chi.RouteContext(r.Context()); rc != nil {
        if p := rc.RoutePattern(); p != "" { return p }
    }
    return "unmatched"
}
