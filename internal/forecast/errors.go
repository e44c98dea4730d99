package forecast

import "errors"

const (
	MsgEmptyPlace   = "Please enter the city name."
	MsgCityNotFound = "City not found"
)

// ErrSuperseded is returned by SubmitQuery when a newer query or a Clear landed
// while the request was in flight. The response was dropped.
var ErrSuperseded = errors.New("query superseded by a newer request")

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// QueryError collapses every upstream failure into one user-facing message. Err
// keeps the cause for logs.
type QueryError struct {
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *QueryError) Unwrap() error { return e.Err }
