package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidGitURL is returned when a GitHub URL cannot be parsed into an
	// (owner, repo, ref) triple.
	ErrInvalidGitURL = errors.New("invalid GitHub URL")

	// ErrInvalidShareURL is returned when a share URL fails the trusted
	// host/path check or carries no giturl parameter.
	ErrInvalidShareURL = errors.New("invalid share URL")

	// ErrDuplicateConfig is returned when a config with the same
	// (owner, repo, ref) triple is already stored.
	ErrDuplicateConfig = errors.New("config already exists")
)

// FieldError is one schema constraint failure, located by a dotted path into
// the candidate document.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// SchemaViolationError carries every constraint failure found in a candidate
// config. Validation is advisory: all violations are reported, nothing is
// coerced.
type SchemaViolationError struct {
	Errors []FieldError
}

func (e *SchemaViolationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fieldErr := range e.Errors {
		msgs[i] = fieldErr.Error()
	}
	return "schema violation: " + strings.Join(msgs, "; ")
}

// IndexOutOfRangeError signals a stale index, typically a delete or edit
// racing a concurrent mutation from another browser surface.
type IndexOutOfRangeError struct {
	Index  int
	Length int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range for config list of length %d", e.Index, e.Length)
}

// ImportParseError wraps a malformed import document. Nothing is applied
// when parsing fails.
type ImportParseError struct {
	Err error
}

func (e *ImportParseError) Error() string {
	return "cannot parse import document: " + e.Err.Error()
}

func (e *ImportParseError) Unwrap() error {
	return e.Err
}

// StoreFailure wraps an external key/value store operation that did not
// complete. Failures are propagated, never retried internally.
type StoreFailure struct {
	Op        string
	Partition Partition
	Key       string
	Err       error
}

func (e *StoreFailure) Error() string {
	return fmt.Sprintf("store %s failed (partition=%s key=%s): %v", e.Op, e.Partition, e.Key, e.Err)
}

func (e *StoreFailure) Unwrap() error {
	return e.Err
}
