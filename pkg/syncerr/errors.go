// Package syncerr holds the error kinds shared by the synchronization pipelines.
package syncerr

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is returned for malformed versions, malformed JSON and missing response fields.
	ErrParse = errors.New("parse error")
	// ErrFetch is returned when an upstream endpoint answers with a non-success status.
	ErrFetch = errors.New("fetch error")
	// ErrAuth is returned when the authentication endpoint rejects the credential request.
	ErrAuth = errors.New("authentication error")
	// ErrFormat is returned when the persisted document is not a JSON object.
	ErrFormat = errors.New("format error")
	// ErrConfig is returned for invalid or missing configuration.
	ErrConfig = errors.New("configuration error")
)

// StatusError reports a non-success HTTP response from an upstream endpoint.
type StatusError struct {
	// Kind is ErrFetch or ErrAuth.
	Kind       error
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: GET %s returned status %d: %s", e.Kind, e.URL, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return e.Kind
}
