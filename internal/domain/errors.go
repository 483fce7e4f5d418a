// Package domain defines the types shared by every CRUD module of the console:
// typed API errors, list queries and list results.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind discriminates the shapes an API failure can take.
type ErrorKind string

const (
	// KindField is a validation failure attributed to named input fields.
	KindField ErrorKind = "field"
	// KindImport is a row-level failure list from a bulk file import.
	KindImport ErrorKind = "import"
	// KindUnknown covers transport failures and unparseable error bodies.
	KindUnknown ErrorKind = "unknown"
)

// APIError is the only error type the API client returns for a failed call.
// FieldErrors is populated for KindField, ImportErrors for KindImport.
type APIError struct {
	Kind         ErrorKind
	HTTPStatus   int
	Message      string
	FieldErrors  map[string][]string
	ImportErrors []string
	Err          error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("API error (HTTP %d): %s", e.HTTPStatus, msg)
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// Fields returns the names of fields carrying errors, sorted.
func (e *APIError) Fields() []string {
	out := make([]string, 0, len(e.FieldErrors))
	for k := range e.FieldErrors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Details flattens the field or import errors into display lines.
func (e *APIError) Details() []string {
	switch e.Kind {
	case KindImport:
		return append([]string(nil), e.ImportErrors...)
	case KindField:
		var out []string
		for _, f := range e.Fields() {
			out = append(out, f+": "+strings.Join(e.FieldErrors[f], ", "))
		}
		return out
	default:
		return nil
	}
}

// NewFieldError creates a KindField error.
func NewFieldError(status int, message string, fields map[string][]string) *APIError {
	if fields == nil {
		fields = map[string][]string{}
	}
	return &APIError{Kind: KindField, HTTPStatus: status, Message: message, FieldErrors: fields}
}

// NewImportError creates a KindImport error.
func NewImportError(status int, message string, rows []string) *APIError {
	return &APIError{Kind: KindImport, HTTPStatus: status, Message: message, ImportErrors: rows}
}

// NewUnknownError wraps a transport or decoding failure.
func NewUnknownError(status int, message string, err error) *APIError {
	return &APIError{Kind: KindUnknown, HTTPStatus: status, Message: message, Err: err}
}

// AsAPIError reports whether err carries an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// KindOf returns the error kind of err, KindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Kind
	}
	return KindUnknown
}
