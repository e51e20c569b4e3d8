package v1

import (
    "encoding/json"
    "errors"
    "net/http"

    chimw "github.com/go-chi/chi/v5/middleware"

    "github.com/tinoosan/compta/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
    Error string `json:"error"`
    Code  string `json:"code,omitempty"`
}

// toJSON writes a JSON response with status code.
func toJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
    toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "bad_request") }

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
    switch errs.KindOf(err) {
    case errs.ErrValidation, errs.ErrIntegrity, errs.ErrPolicy:
        return http.StatusUnprocessableEntity
    case errs.ErrState, errs.ErrReferential:
        return http.StatusConflict
    case errs.ErrNotFound:
        return http.StatusNotFound
    case errs.ErrForbidden:
        return http.StatusForbidden
    }
    return http.StatusInternalServerError
}

// fail writes err as a taxonomy response. Errors outside the taxonomy are
// logged and hidden behind a 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
    status := statusFor(err)
    if status == http.StatusInternalServerError {
        s.log.Error("request failed", "req_id", chimw.GetReqID(r.Context()), "err", err)
        writeErr(w, status, "internal error", "internal")
        return
    }
    var typed *errs.Error
    if errors.As(err, &typed) { domainErrorsTotal.WithLabelValues(typed.Code).Inc() }
    writeErr(w, status, err.Error(), errs.CodeOf(err))
}
