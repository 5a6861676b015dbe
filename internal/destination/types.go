package destination

import (
	"errors"
	"fmt"
)

// ErrLookup is wrapped by every failure of a destination store lookup.
var ErrLookup = errors.New("destination lookup failed")

// ErrNotFound is wrapped (together with ErrLookup) when a detail lookup has no match.
var ErrNotFound = errors.New("destination not found")

// LookupError is a store failure. Msg describes the failed operation and is
// safe to show to end users; Err carries the underlying cause, which may
// name internal addresses.
type LookupError struct {
	Msg string
	Err error
}

// NewLookupError returns a LookupError wrapping err.
func NewLookupError(msg string, err error) *LookupError {
	return &LookupError{Msg: msg, Err: err}
}

// NotFoundError reports that no destination is named name.
func NotFoundError(name string) *LookupError {
	return &LookupError{Msg: fmt.Sprintf("no destination named %q", name), Err: ErrNotFound}
}

func (e *LookupError) Error() string {
	if e.Err == nil {
		return ErrLookup.Error() + ": " + e.Msg
	}
	return ErrLookup.Error() + ": " + e.Msg + ": " + e.Err.Error()
}

// Unwrap exposes both ErrLookup and the underlying cause to errors.Is and errors.As.
func (e *LookupError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrLookup}
	}
	return []error{ErrLookup, e.Err}
}

// Destination is an immutable destination record returned by a store.
// ID is unique across all results of one session.
type Destination struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	Description string  `json:"description"`
	Climate     string  `json:"climate"`
	Currency    string  `json:"currency"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}
