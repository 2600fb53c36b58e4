package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// Absorbed into data by the pipeline, never fatal.
	ErrorTypeSourceUnavailable        ErrorType = "SourceUnavailable"
	ErrorTypeVerificationInconclusive ErrorType = "VerificationInconclusive"
	ErrorTypeNoIntentMatched          ErrorType = "NoIntentMatched"

	// Surfaced to the caller.
	ErrorTypeRenderEncodingUnsupported ErrorType = "RenderEncodingUnsupported"
	ErrorTypeArtifactWriteFailed       ErrorType = "ArtifactWriteFailed"
	ErrorTypeConfiguration             ErrorType = "Configuration"
	ErrorTypeValidation                ErrorType = "Validation"
)

// Fatal reports whether errors of this type abort the call that raised them
func (t ErrorType) Fatal() bool {
	switch t {
	case ErrorTypeSourceUnavailable, ErrorTypeVerificationInconclusive, ErrorTypeNoIntentMatched:
		return false
	default:
		return true
	}
}

// Component names the part of the pipeline an error came from
type Component string

const (
	ComponentLocal    Component = "local"
	ComponentRemote   Component = "remote"
	ComponentVerifier Component = "verifier"
	ComponentRouter   Component = "router"
	ComponentRenderer Component = "renderer"
	ComponentExport   Component = "export"
	ComponentConfig   Component = "config"
	ComponentPipeline Component = "pipeline"
	ComponentTools    Component = "tools"
)

// Error is a structured, user-facing error with actionable guidance.
type Error struct {
	Type      ErrorType `json:"type"`
	Component Component `json:"component,omitempty"`
	Message   string    `json:"message"`
	Cause     string    `json:"cause,omitempty"`
	Path      string    `json:"path,omitempty"`
	Solutions []string  `json:"solutions,omitempty"`

	err error
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Path != "" {
		sb.WriteString(fmt.Sprintf(" (path: %s)", e.Path))
	}
	if e.Cause != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Cause)
	}
	return sb.String()
}

// Unwrap exposes the wrapped error, if any
func (e *Error) Unwrap() error {
	return e.err
}

// Format implements fmt.Formatter for custom formatting
func (e *Error) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, e.Error())
	case 'v':
		if f.Flag('+') {
			fmt.Fprintf(f, "[%s/%s] %s", e.Type, e.Component, e.Error())
		} else {
			fmt.Fprint(f, e.Error())
		}
	case 'q':
		fmt.Fprintf(f, "%q", e.Error())
	}
}

// New creates a new Error
func New(errType ErrorType, component Component, message string) *Error {
	return &Error{
		Type:      errType,
		Component: component,
		Message:   message,
	}
}

// WithCause records err as the cause
func (e *Error) WithCause(err error) *Error {
	if err != nil {
		e.err = err
		e.Cause = err.Error()
	}
	return e
}

// WithPath records the filesystem or object path involved
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithSolutions adds solution steps
func (e *Error) WithSolutions(solutions ...string) *Error {
	e.Solutions = append(e.Solutions, solutions...)
	return e
}

// As extracts an *Error from err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsType reports whether err's chain holds an *Error of type t
func IsType(err error, t ErrorType) bool {
	e, ok := As(err)
	return ok && e.Type == t
}

// ExitCode returns appropriate exit code for error type
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	e, ok := As(err)
	if !ok {
		return 1
	}

	switch e.Type {
	case ErrorTypeConfiguration:
		return 78 // EX_CONFIG
	case ErrorTypeSourceUnavailable, ErrorTypeVerificationInconclusive:
		return 69 // EX_UNAVAILABLE
	case ErrorTypeArtifactWriteFailed:
		return 73 // EX_CANTCREAT
	case ErrorTypeRenderEncodingUnsupported, ErrorTypeValidation:
		return 64 // EX_USAGE
	default:
		return 1
	}
}
