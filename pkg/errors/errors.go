// Package errors provides structured error types used across the application.
// We prefer these over raw fmt.Errorf strings to enable reliable checks with
// errors.Is / errors.As and to carry minimal context about the failure.
package errors

import (
	"errors"
	"fmt"
)

// ValidationError indicates invalid input/config/state provided by a caller/user.
// Keep fields minimal; add codes when we have real classification needs.
type ValidationError struct {
	Op   string // where it happened (package.Function)
	Msg  string // human friendly message (no PII)
	Err  error  // underlying cause (optional)
	kind Kind
}

// Kind returns the error's failure category, defaulting to KindUnexpected
// when none was set by a specific constructor.
func (e *ValidationError) Kind() Kind {
	if e == nil || e.kind == "" {
		return KindUnexpected
	}
	return e.kind
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("validation: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("validation: %s: %s", e.Op, e.Msg)
}

func (e *ValidationError) Unwrap() error           { return e.Err }
func (e *ValidationError) Operation() string       { return e.Op }
func (e *ValidationError) Message() string         { return e.Msg }
func (e *ValidationError) Context() map[string]any { return map[string]any{"op": e.Op, "msg": e.Msg} }

func NewValidation(op, msg string, err error) error {
	return &ValidationError{Op: op, Msg: msg, Err: err}
}

// DBError represents database access/operation failures.
type DBError struct {
	Op  string
	Msg string
	Err error
}

func (e *DBError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("db: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("db: %s: %s", e.Op, e.Msg)
}

func (e *DBError) Unwrap() error           { return e.Err }
func (e *DBError) Operation() string       { return e.Op }
func (e *DBError) Message() string         { return e.Msg }
func (e *DBError) Context() map[string]any { return map[string]any{"op": e.Op, "msg": e.Msg} }

func NewDB(op, msg string, err error) error { return &DBError{Op: op, Msg: msg, Err: err} }

// ExternalAPIError represents failures in external services (HTTP APIs, SDKs, etc.).
type ExternalAPIError struct {
	Op     string
	Msg    string
	Err    error
	System string // optional system name e.g. "google" / "openai"
	kind   Kind
}

func (e *ExternalAPIError) Kind() Kind {
	if e == nil || e.kind == "" {
		return KindUnexpected
	}
	return e.kind
}

func (e *ExternalAPIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	sys := e.System
	if sys == "" {
		sys = "external"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", sys, e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", sys, e.Op, e.Msg)
}

func (e *ExternalAPIError) Unwrap() error     { return e.Err }
func (e *ExternalAPIError) Operation() string { return e.Op }
func (e *ExternalAPIError) Message() string   { return e.Msg }
func (e *ExternalAPIError) Context() map[string]any {
	return map[string]any{"op": e.Op, "msg": e.Msg, "system": e.System}
}

func NewExternal(op, system, msg string, err error) error {
	return &ExternalAPIError{Op: op, System: system, Msg: msg, Err: err}
}

// BizError is for domain/business logic failures that aren't programmer bugs.
type BizError struct {
	Op   string
	Msg  string
	Err  error
	kind Kind
}

func (e *BizError) Kind() Kind {
	if e == nil || e.kind == "" {
		return KindUnexpected
	}
	return e.kind
}

func (e *BizError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("biz: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("biz: %s: %s", e.Op, e.Msg)
}

func (e *BizError) Unwrap() error           { return e.Err }
func (e *BizError) Operation() string       { return e.Op }
func (e *BizError) Message() string         { return e.Msg }
func (e *BizError) Context() map[string]any { return map[string]any{"op": e.Op, "msg": e.Msg} }

func NewBiz(op, msg string, err error) error { return &BizError{Op: op, Msg: msg, Err: err} }

// Kind tags a structured error with one of the fixed failure categories
// the service surfaces at its boundaries. Kind is orthogonal to the Go
// error type (ValidationError/ExternalAPIError/BizError/DBError) — it
// exists so callers can branch on "what kind of failure is this" without
// caring which struct carries it.
type Kind string

const (
	KindImageValidation        Kind = "image_validation"
	KindOCRFailure             Kind = "ocr_failure"
	KindLLMUnavailable         Kind = "llm_unavailable"
	KindVectorIndexUnavailable Kind = "vector_index_unavailable"
	KindReviewNotFound         Kind = "review_not_found"
	KindUnexpected             Kind = "unexpected"
)

// kinded is implemented by error types that carry a Kind.
type kinded interface {
	Kind() Kind
}

// KindOf reports the Kind of err, or KindUnexpected if err carries none.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnexpected
}

// NewImageValidation builds the ImageValidation kind: bad image count or
// undecodable image bytes, surfaced as a client-side validation failure.
func NewImageValidation(op, msg string, err error) error {
	return &ValidationError{Op: op, Msg: msg, Err: err, kind: KindImageValidation}
}

// NewOCRFailure builds the OCRFailure kind: OCR produced no usable text.
func NewOCRFailure(op, msg string, err error) error {
	return &ValidationError{Op: op, Msg: msg, Err: err, kind: KindOCRFailure}
}

// NewLLMUnavailable builds the LLMUnavailable kind. Internal only — the
// Coordinator degrades to fallback paths and never surfaces this to callers.
func NewLLMUnavailable(op, msg string, err error) error {
	return &ExternalAPIError{Op: op, System: "openai", Msg: msg, Err: err, kind: KindLLMUnavailable}
}

// NewVectorIndexUnavailable builds the VectorIndexUnavailable kind. Internal
// only — treated as empty evidence by the Coordinator.
func NewVectorIndexUnavailable(op, msg string, err error) error {
	return &ExternalAPIError{Op: op, System: "vectorindex", Msg: msg, Err: err, kind: KindVectorIndexUnavailable}
}

// NewReviewNotFound builds the ReviewNotFound kind: a correction submission
// referenced an unknown or already-consumed request-id.
func NewReviewNotFound(op, requestID string) error {
	return &BizError{Op: op, Msg: "no pending review for request_id " + requestID, kind: KindReviewNotFound}
}

// IsKind helpers: allow callers to check error kind without type assertions.
// Example: if errors.Is(err, errors.ErrValidation) { ... }
var (
	ErrValidation = &ValidationError{}
	ErrDB         = &DBError{}
	ErrExternal   = &ExternalAPIError{}
	ErrBiz        = &BizError{}
)

// Is enables errors.Is(err, ErrValidation) via errors.As semantics.
// We delegate to errors.As with the zero-value pointer of each type.
func Is(err, target error) bool {
	if err == nil || target == nil {
		return errors.Is(err, target)
	}
	switch target.(type) {
	case *ValidationError:
		var v *ValidationError
		return errors.As(err, &v)
	case *DBError:
		var d *DBError
		return errors.As(err, &d)
	case *ExternalAPIError:
		var ex *ExternalAPIError
		return errors.As(err, &ex)
	case *BizError:
		var b *BizError
		return errors.As(err, &b)
	default:
		return errors.Is(err, target)
	}
}
