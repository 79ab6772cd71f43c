package domain

import (
	"errors"
	"fmt"
)

// ErrRateLimited marks a fetch failure caused by upstream throttling. It is
// always wrapped inside a *TransientFetchError; schedulers detect it with
// errors.Is and respond by lengthening the inter-batch cooldown rather than
// aborting.
var ErrRateLimited = errors.New("rate limited by upstream")

// UnresolvableLocationError reports a postcode the lookup service could not
// resolve. It is a client error and is never retried.
type UnresolvableLocationError struct {
	Postcode   string
	StatusCode int
}

func (e *UnresolvableLocationError) Error() string {
	return fmt.Sprintf("unresolvable location %q (status %d)", e.Postcode, e.StatusCode)
}

// TransientFetchError reports a failed fetch for a single month window:
// a network fault, a non-2xx response, or an undecodable payload. The
// surrounding batch may be retried.
type TransientFetchError struct {
	Window     MonthWindow
	StatusCode int
	Err        error
}

func (e *TransientFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch window %s: status %d: %v", e.Window, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch window %s: %v", e.Window, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// PartialWindowError reports an acquisition that could not fetch every
// window. Failed includes both windows whose fetch failed and windows that
// were never dispatched, so callers can retry exactly what is missing.
type PartialWindowError struct {
	Succeeded []MonthWindow
	Failed    []MonthWindow
	Err       error
}

func (e *PartialWindowError) Error() string {
	return fmt.Sprintf("acquisition incomplete: %d windows fetched, %d missing: %v",
		len(e.Succeeded), len(e.Failed), e.Err)
}

func (e *PartialWindowError) Unwrap() error { return e.Err }

// MalformedRecordError reports an upstream record that does not match the
// expected payload shape. A single malformed record is dropped and logged;
// the error aborts acquisition only when every record in a window is
// malformed.
type MalformedRecordError struct {
	Kind   RecordKind
	Window MonthWindow
	Field  string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed %s record in %s: missing %s", e.Kind, e.Window, e.Field)
	}
	return fmt.Sprintf("malformed %s record in %s: %v", e.Kind, e.Window, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// UnknownCategoryError reports an aggregation field name outside the
// recognized categorical set for a record kind.
type UnknownCategoryError struct {
	Field string
	Kind  RecordKind
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("%q is not a recognized categorical field for %s records", e.Field, e.Kind)
}
