package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds for backend errors.
var (
	// ErrRequest marks every failed call to the analysis backend.
	ErrRequest = errors.New("backend request failed")
	// ErrDecode marks a 2xx response whose body could not be decoded.
	ErrDecode = errors.New("backend response malformed")
)

// RequestError describes a failed backend call. Status is zero when no HTTP
// response was received.
type RequestError struct {
	Op     string
	Status int
	Detail string
	Err    error
}

// Error implements error.
func (e *RequestError) Error() string {
	switch {
	case e.Status != 0 && e.Detail != "":
		return fmt.Sprintf("%s: %d %s: %s", e.Op, e.Status, http.StatusText(e.Status), e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: request failed with status code %d", e.Op, e.Status)
	default:
		return e.Op + ": " + ErrRequest.Error()
	}
}

// UserDetail returns the server-supplied detail message.
func (e *RequestError) UserDetail() string {
	return e.Detail
}

// Unwrap exposes ErrRequest and the underlying cause to errors.Is/As.
func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRequest}
	}
	return []error{ErrRequest, e.Err}
}

// Detail returns the server-supplied detail message carried by err, if any.
func Detail(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Detail
	}
	return ""
}

// Status returns the HTTP status carried by err, or zero.
func Status(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}
