package viewmodel

import (
	"errors"
	"fmt"
)

// ErrValidation matches every error produced while building view-models from
// malformed documents. These errors are permanent: retrying the fetch returns
// the same document.
var ErrValidation = errors.New("invalid content document")

var (
	ErrMissingPublicationDate = errors.New("first publication date is missing")
	ErrInvalidPublicationDate = errors.New("first publication date is not a valid ISO-8601 timestamp")
	ErrMissingField           = errors.New("required field is empty")
)

// ValidationError names the document and field that failed.
type ValidationError struct {
	Slug  string
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	slug := e.Slug
	if slug == "" {
		slug = "<no uid>"
	}
	return fmt.Sprintf("document %s: %s: %v", slug, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrValidation) true for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
