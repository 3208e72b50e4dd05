// Package docerrors provides the structured error types returned by refdoc.
//
// Every error category has a sentinel usable with errors.Is and a typed error
// usable with errors.As:
//
//   - ConfigError: missing or invalid configuration, raised before any route
//     is processed
//   - NormalizeError: raw field input that cannot be normalized
//   - RouteError: a route whose annotation data is malformed
//   - ReferenceError: a ref that cannot be resolved or rendered
//   - ValidationError: a rendered document rejected by the OpenAPI validator
//   - WriteError: an output target that failed to initialize, write or close
//
// Usage:
//
//	res, err := gen.Run(ctx)
//	if err != nil {
//	    var refErr *docerrors.ReferenceError
//	    if errors.As(err, &refErr) {
//	        log.Printf("bad ref %s %q", refErr.Kind, refErr.Name)
//	    }
//	}
package docerrors

import (
	"errors"
	"strings"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrConfig indicates an invalid or incomplete configuration.
	ErrConfig = errors.New("configuration error")

	// ErrNormalize indicates raw field input that could not be normalized.
	ErrNormalize = errors.New("normalization error")

	// ErrRoute indicates a route whose annotation could not be built.
	ErrRoute = errors.New("route error")

	// ErrReference indicates a reference resolution failure.
	ErrReference = errors.New("reference error")

	// ErrValidation indicates the rendered document failed validation.
	ErrValidation = errors.New("validation error")

	// ErrWrite indicates an output target failure.
	ErrWrite = errors.New("write error")
)

// ConfigError represents a missing or invalid configuration value.
type ConfigError struct {
	// Field is the configuration key at fault (e.g. "title", "outputs[1].format")
	Field string
	// Message describes the problem
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ConfigError) Error() string {
	msg := "configuration error"
	if e.Field != "" {
		msg += " at " + e.Field
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NormalizeError represents raw input that cannot be turned into a field.
type NormalizeError struct {
	// Path is the dotted location of the offending value (e.g. "properties.id.minimum")
	Path string
	// Message describes the problem
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *NormalizeError) Error() string {
	msg := "normalization error"
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *NormalizeError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *NormalizeError) Is(target error) bool {
	return target == ErrNormalize
}

// RouteError represents a route that could not be built from its
// annotation data.
type RouteError struct {
	Verb   string
	Path   string
	Handle string
	// Cause is the underlying error
	Cause error
}

// Error returns a human-readable error message.
func (e *RouteError) Error() string {
	var b strings.Builder
	b.WriteString("route error")
	if e.Verb != "" || e.Path != "" {
		b.WriteString(" for ")
		b.WriteString(strings.ToUpper(e.Verb))
		if e.Verb != "" && e.Path != "" {
			b.WriteByte(' ')
		}
		b.WriteString(e.Path)
	}
	if e.Handle != "" {
		b.WriteString(" (" + e.Handle + ")")
	}
	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause for error chaining.
func (e *RouteError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *RouteError) Is(target error) bool {
	return target == ErrRoute
}

// ReferenceError represents a ref that cannot be resolved: an unknown name,
// a definition lacking the capability its kind tag claims, a ref used in a
// position that does not accept its kind, or a name claimed twice.
type ReferenceError struct {
	// Kind is the definition kind (e.g. "schema", "response")
	Kind string
	// Name is the definition name
	Name string
	// Message describes the problem
	Message string
	// Cause is the underlying error, if any
	Cause error
}

// Error returns a human-readable error message.
func (e *ReferenceError) Error() string {
	msg := "reference error"
	if e.Kind != "" {
		msg += ": " + e.Kind
	}
	if e.Name != "" {
		msg += " " + `"` + e.Name + `"`
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ReferenceError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ReferenceError) Is(target error) bool {
	return target == ErrReference
}

// ValidationError represents a rendered document rejected by the
// OpenAPI validator.
type ValidationError struct {
	// Message describes the failure
	Message string
	// Cause is the validator error
	Cause error
}

// Error returns a human-readable error message.
func (e *ValidationError) Error() string {
	msg := "validation error"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// WriteOp names the writer step that failed.
type WriteOp string

const (
	OpEncode WriteOp = "encode"
	OpInit   WriteOp = "init"
	OpWrite  WriteOp = "write"
	OpClose  WriteOp = "close"
)

// WriteError represents the failure of a single output target.
type WriteError struct {
	// Target identifies the destination (file path or "stdout")
	Target string
	// Op is the step that failed
	Op WriteOp
	// Cause is the underlying error
	Cause error
}

// Error returns a human-readable error message.
func (e *WriteError) Error() string {
	msg := "write error"
	if e.Target != "" {
		msg += " for " + e.Target
	}
	if e.Op != "" {
		msg += " during " + string(e.Op)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *WriteError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *WriteError) Is(target error) bool {
	return target == ErrWrite
}
