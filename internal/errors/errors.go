// Package errors defines the typed error taxonomy of spec §7: expected
// outcomes (NotFound, InputTooSmall, Cancelled) are ordinary typed values,
// not control-flow panics, and every kind carries enough context for a
// caller to decide policy.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind identifies one of the error categories of spec §7.
type Kind string

const (
	KindInputTooSmall          Kind = "input_too_small"
	KindBinaryFile             Kind = "binary_file"
	KindStoreUnavailable       Kind = "store_unavailable"
	KindStoreConflict          Kind = "store_conflict"
	KindNotFound               Kind = "not_found"
	KindCancelled              Kind = "cancelled"
	KindInvalidSignatureSyntax Kind = "invalid_signature_syntax"
	KindInvalidGlob            Kind = "invalid_glob"
	KindInvalidRegex           Kind = "invalid_regex"
)

// CoreError is the single error shape used across the pipeline. Kind is
// machine-readable; Message is for humans; Underlying carries the cause
// when one exists.
type CoreError struct {
	Kind       Kind
	Operation  string
	Path       string
	Message    string
	Underlying error
	Timestamp  time.Time
}

func (e *CoreError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s failed for %s: %s", e.Kind, e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s failed: %s", e.Kind, e.Operation, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Underlying }

func newError(kind Kind, op, path string, err error) *CoreError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &CoreError{
		Kind:       kind,
		Operation:  op,
		Path:       path,
		Message:    msg,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// InputTooSmall reports that the encoder was given fewer bytes than one window.
func InputTooSmall(op, path string, size, window int64) *CoreError {
	return newError(KindInputTooSmall, op, path,
		fmt.Errorf("%d bytes, need at least %d", size, window))
}

// BinaryFile marks a file as classified non-text; this is not a failure,
// the caller still indexes the body without signature or chaos profile.
func BinaryFile(path string) *CoreError {
	return newError(KindBinaryFile, "classify", path, fmt.Errorf("binary content detected"))
}

// StoreUnavailable wraps a transport-level failure from the persistent store.
func StoreUnavailable(op, path string, err error) *CoreError {
	return newError(KindStoreUnavailable, op, path, err)
}

// StoreConflict reports an optimistic-write conflict after retries are exhausted.
func StoreConflict(op, path string, err error) *CoreError {
	return newError(KindStoreConflict, op, path, err)
}

// NotFound reports a missing key; callers decide whether that's an error.
func NotFound(op, path string) *CoreError {
	return newError(KindNotFound, op, path, fmt.Errorf("not found"))
}

// Cancelled reports a cooperatively cancelled long-running operation.
func Cancelled(op string) *CoreError {
	return newError(KindCancelled, op, "", fmt.Errorf("operation cancelled"))
}

// InvalidSignatureSyntax reports a malformed signature string at a query boundary.
func InvalidSignatureSyntax(raw string, err error) *CoreError {
	return newError(KindInvalidSignatureSyntax, "parse_signature", raw, err)
}

// InvalidGlob reports a malformed glob pattern at a query boundary.
func InvalidGlob(pattern string, err error) *CoreError {
	return newError(KindInvalidGlob, "parse_glob", pattern, err)
}

// InvalidRegex reports a malformed regular expression at a query boundary.
func InvalidRegex(pattern string, err error) *CoreError {
	return newError(KindInvalidRegex, "parse_regex", pattern, err)
}

// Is reports whether err is, or wraps, a CoreError of the given kind.
func Is(err error, kind Kind) bool {
	var ce *CoreError
	if !stderrors.As(err, &ce) {
		return false
	}
	return ce.Kind == kind
}
