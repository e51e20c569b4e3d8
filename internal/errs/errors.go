// Package errs defines the error taxonomy shared by the ledger services and the
// HTTP layer. Kinds are plain sentinels; each specific failure is an *Error that
// unwraps to its kind, so callers can test either with errors.Is.
package errs

import "errors"

// Kinds.
var (
    ErrValidation  = errors.New("validation")
    ErrReferential = errors.New("referential")
    ErrState       = errors.New("state")
    ErrIntegrity   = errors.New("integrity")
    ErrNotFound    = errors.New("not_found")
    ErrPolicy      = errors.New("policy")
    // ErrForbidden is raised by the HTTP layer when the actor cannot be established.
    ErrForbidden = errors.New("forbidden")
)

// Error is a typed failure with a stable code.
type Error struct {
    Code string
    Kind error
}

func (e *Error) Error() string { return e.Code }

// Unwrap exposes the kind so errors.Is(err, ErrState) holds for every state error.
func (e *Error) Unwrap() error { return e.Kind }

func newErr(kind error, code string) *Error { return &Error{Code: code, Kind: kind} }

// Validation
var (
    ErrOverlap       = newErr(ErrValidation, "overlap")
    ErrDuplicateCode = newErr(ErrValidation, "duplicate_code")
)

// Referential
var (
    ErrInUse = newErr(ErrReferential, "in_use")
)

// State
var (
    ErrImmutableEntry    = newErr(ErrState, "immutable_entry")
    ErrAlreadyClosed     = newErr(ErrState, "already_closed")
    ErrAlreadyValidated  = newErr(ErrState, "already_validated")
    ErrInvalidTransition = newErr(ErrState, "invalid_transition")
    ErrPeriodClosed      = newErr(ErrState, "period_closed")
    ErrInactiveJournal   = newErr(ErrState, "inactive_journal")
)

// Integrity
var (
    ErrUnbalancedEntry       = newErr(ErrIntegrity, "unbalanced_entry")
    ErrInsufficientLines     = newErr(ErrIntegrity, "insufficient_lines")
    ErrNonPostableAccount    = newErr(ErrIntegrity, "non_postable_account")
    ErrMalformedLine         = newErr(ErrIntegrity, "malformed_line")
    ErrUnbalanceableTemplate = newErr(ErrIntegrity, "unbalanceable_template")
)

// Not found
var (
    ErrNoPeriod               = newErr(ErrNotFound, "no_period")
    ErrUnknownJournal         = newErr(ErrNotFound, "unknown_journal")
    ErrUnknownAccount         = newErr(ErrNotFound, "unknown_account")
    ErrUnresolvedCounterparty = newErr(ErrNotFound, "unresolved_counterparty")
)

// Policy
var (
    ErrCeilingExceeded     = newErr(ErrPolicy, "ceiling_exceeded")
    ErrMultipleActiveYears = newErr(ErrPolicy, "multiple_active_years")
)

var kinds = []error{ErrValidation, ErrReferential, ErrState, ErrIntegrity, ErrNotFound, ErrPolicy, ErrForbidden}

// Invalid wraps a free-form validation failure (empty field, bad enum).
func Invalid(msg string) error { return &detailed{msg: msg, kind: ErrValidation} }

// Missing reports an entity that does not exist.
func Missing(what string) error { return &detailed{msg: what + " not found", kind: ErrNotFound} }

type detailed struct {
    msg  string
    kind error
}

func (d *detailed) Error() string { return d.msg }
func (d *detailed) Unwrap() error { return d.kind }

// KindOf returns the kind sentinel carried by err, or nil when err is not part
// of the taxonomy.
func KindOf(err error) error {
    if err == nil { return nil }
    for _, k := range kinds {
        if errors.Is(err, k) { return k }
    }
    return nil
}

// CodeOf returns the code of the most specific *Error in err's chain, falling
// back to the kind name.
func CodeOf(err error) string {
    var e *Error
    if errors.As(err, &e) { return e.Code }
    if k := KindOf(err); k != nil { return k.Error() }
    return ""
}
