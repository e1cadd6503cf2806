package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a DomainError for callers that only care about the
// category of failure (HTTP status mapping, retry decisions).
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindNotFound            Kind = "NOT_FOUND"
	KindInvalidState        Kind = "INVALID_STATE"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindPluginExecution     Kind = "PLUGIN_EXECUTION"
)

// DomainError is the error type returned by every service in the switch.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches a target with an empty Code by Kind, otherwise by Code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Code == "" {
		return t.Kind == e.Kind
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *DomainError) WithMessage(format string, args ...any) *DomainError {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// Wrap returns a copy of e wrapping cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	c := *e
	c.Err = cause
	return &c
}

// Generic sentinels, one per kind.
var (
	ErrValidation          = &DomainError{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound            = &DomainError{Kind: KindNotFound, Message: "not found"}
	ErrInvalidState        = &DomainError{Kind: KindInvalidState, Message: "invalid state"}
	ErrInsufficientBalance = &DomainError{Kind: KindInsufficientBalance, Message: "insufficient balance"}
	ErrPluginExecution     = &DomainError{Kind: KindPluginExecution, Message: "plugin execution failed"}
)

// Validation builds a validation error with the given code.
func Validation(code, format string, args ...any) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first DomainError in err's chain.
func KindOf(err error) (Kind, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// CodeOf returns the code of the first DomainError in err's chain, falling
// back to the kind when the error carries no code.
func CodeOf(err error) string {
	var de *DomainError
	if !errors.As(err, &de) {
		return "INTERNAL_ERROR"
	}
	if de.Code != "" {
		return de.Code
	}
	return string(de.Kind)
}

// ValidationErrors collects field level problems, e.g. while validating config.
type ValidationErrors struct {
	fields []string
}

func ValidationErrs() *ValidationErrors {
	return &ValidationErrors{}
}

func (v *ValidationErrors) Add(field, msg string) {
	v.fields = append(v.fields, field+": "+msg)
}

// Err returns nil when nothing was added.
func (v *ValidationErrors) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return Validation("INVALID_CONFIG", "%s", strings.Join(v.fields, "; "))
}
