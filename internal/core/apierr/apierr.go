// Package apierr defines the error taxonomy shared by the filter engine and the HTTP API.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// FetchError reports a failure reaching a value or candidate endpoint.
type FetchError struct {
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	msg := "fetch " + e.Op
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError reports a malformed request parameter.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Msg
	}
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Msg)
}

// NotFoundError reports an unknown relation, filter or record.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
}

func Fetch(op, url string, err error) error {
	return &FetchError{Op: op, URL: url, Err: err}
}

func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name}
}

func IsFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// Status maps err to the HTTP status the API answers with.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
