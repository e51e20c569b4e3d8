// Package v1 wires the HTTP surface of the ledger.
// It keeps handlers thin, delegating business rules to the service layer.
package v1

import (
    "context"
    "log/slog"
    "net/http"

    chi "github.com/go-chi/chi/v5"
    chimw "github.com/go-chi/chi/v5/middleware"

    "github.com/tinoosan/compta/internal/service/account"
    "github.com/tinoosan/compta/internal/service/entry"
    "github.com/tinoosan/compta/internal/service/fiscalyear"
    "github.com/tinoosan/compta/internal/service/journal"
    "github.com/tinoosan/compta/internal/service/operation"
    "github.com/tinoosan/compta/internal/service/period"
    "github.com/tinoosan/compta/internal/storage"
)

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
    Ready(ctx context.Context) error
}

// Options tunes the server. The zero value serves EUR amounts without authentication.
type Options struct {
    // Currency is the book currency used to render minor units.
    Currency string
    // TopN is the default number of products in a fiscal year summary.
    TopN int
    Auth AuthConfig
}

// Server wires handlers and middleware using Chi.
type Server struct {
    accounts   account.Service
    journals   journal.Service
    periods    period.Service
    entries    entry.Service
    operations operation.Service
    years      fiscalyear.Service

    store    storage.Store
    idem     storage.IdempotencyStore
    currency string
    topN     int
    log      *slog.Logger
    rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware over store.
// Idempotency keys are honoured when store also implements storage.IdempotencyStore.
func New(store storage.Store, logger *slog.Logger, opts Options) *Server {
    if opts.Currency == "" { opts.Currency = "EUR" }
    r := chi.NewRouter()
    r.Use(chimw.RequestID)
    r.Use(requestLogger(logger))
    r.Use(recoverer(logger))
    r.Use(metricsMiddleware)
    r.Use(authenticate(opts.Auth))

    entries := entry.New(store, logger)
    s := &Server{
        accounts:   account.New(store),
        journals:   journal.New(store),
        periods:    period.New(store, logger),
        entries:    entries,
        operations: operation.New(store, entries, logger),
        years:      fiscalyear.New(store, logger),
        store:      store,
        currency:   opts.Currency,
        topN:       opts.TopN,
        log:        logger,
        rt:         r,
    }
    if idem, ok := store.(storage.IdempotencyStore); ok { s.idem = idem }
    s.routes()
    return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
    // Health (unversioned)
    s.rt.Get("/healthz", s.healthz)
    s.rt.Get("/readyz", s.readyz)
    s.rt.Method(http.MethodGet, "/metrics", metricsHandler())

    s.rt.Route("/v1", func(r chi.Router) {
        r.Get("/dictionary/classes", s.getClassesDictionary)

        r.Route("/accounts", func(r chi.Router) {
            r.Post("/", s.postAccount)
            r.Get("/", s.listAccounts)
            r.Get("/{id}", s.getAccount)
            r.Patch("/{id}", s.patchAccount)
            r.Delete("/{id}", s.deleteAccount)
        })
        r.Route("/journals", func(r chi.Router) {
            r.Post("/", s.postJournal)
            r.Get("/", s.listJournals)
            r.Get("/{id}", s.getJournal)
            r.Patch("/{id}", s.patchJournal)
            r.Delete("/{id}", s.deleteJournal)
        })
        r.Route("/periods", func(r chi.Router) {
            r.Post("/", s.postPeriod)
            r.Get("/", s.listPeriods)
            r.Get("/lookup", s.lookupPeriod)
            r.Get("/{id}", s.getPeriod)
            r.Delete("/{id}", s.deletePeriod)
            r.Post("/{id}/close", s.closePeriod)
        })
        r.Route("/entries", func(r chi.Router) {
            r.Post("/", s.postEntry)
            r.With(s.validateEntryFilter()).Get("/", s.listEntries)
            r.Get("/{id}", s.getEntry)
            r.Patch("/{id}", s.patchEntry)
            r.Delete("/{id}", s.deleteEntry)
            r.Post("/{id}/validate", s.validateEntry)
        })
        r.Route("/operations", func(r chi.Router) {
            r.Post("/", s.postTemplate)
            r.Get("/", s.listTemplates)
            r.Get("/{id}", s.getTemplate)
            r.Put("/{id}", s.putTemplate)
            r.Delete("/{id}", s.deleteTemplate)
            r.Post("/{id}/post", s.postOperation)
        })
        r.Route("/fiscal-years", func(r chi.Router) {
            r.Post("/", s.postYear)
            r.Get("/", s.listYears)
            r.Get("/{id}", s.getYear)
            r.Post("/{id}/activate", s.activateYear)
            r.Post("/{id}/close", s.closeYear)
            r.Post("/{id}/summary", s.yearSummary)
            r.Get("/{id}/balances", s.yearBalances)
            r.Get("/{id}/periods", s.yearPeriods)
        })
        r.With(s.validateEntryFilter()).Get("/trial-balance", s.trialBalance)
    })
}
