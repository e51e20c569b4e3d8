package v1

import (
    "encoding/json"
    "net/http"
    "strings"
)

// requireJSON ensures the request has Content-Type application/json (optionally with params).
// Writes 415 if not JSON and returns false; otherwise returns true.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
    ct := r.Header.Get("Content-Type")
    if ct == "" { writeErr(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported_media_type"); return false }
    mime := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
    if mime != "application/json" { writeErr(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported_media_type"); return false }
    return true
}

// decodeJSON checks the content type and strictly decodes the body into v.
// On failure the response has been written and false is returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
    if !requireJSON(w, r) { return false }
    dec := json.NewDecoder(r.Body)
    dec.DisallowUnknownFields()
    if err := dec.Decode(v); err != nil {
        badRequest(w, "invalid JSON: "+err.Error())
        return false
    }
    return true
}
