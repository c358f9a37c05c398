package service

import "fmt"

// Outcome classifies the result of an LMS call
type Outcome int

const (
	OutcomeOK Outcome = iota
	// OutcomeNotFound means the LMS has no such attempt (HTTP 404)
	OutcomeNotFound
	// OutcomeBadRequest means the LMS rejected the request (HTTP 400, or success=false)
	OutcomeBadRequest
	// OutcomeTransient covers network errors, rate limits and unexpected statuses
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeBadRequest:
		return "bad_request"
	case OutcomeTransient:
		return "transient"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// CallResult is the outcome of one LMS call. Data is only set for OutcomeOK.
type CallResult[T any] struct {
	Outcome Outcome
	Data    T
	// Status is the HTTP status, zero when no response was received
	Status int
	// Message is the server-provided message, if any
	Message string
	Err     error
}

// OK reports whether the call succeeded
func (r CallResult[T]) OK() bool {
	return r.Outcome == OutcomeOK
}

// Rejected reports whether the LMS says the attempt is invalid or finalized
func (r CallResult[T]) Rejected() bool {
	return r.Outcome == OutcomeNotFound || r.Outcome == OutcomeBadRequest
}
