package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseEncode   Phase = "encode"   // Go to engine array
	PhaseDecode   Phase = "decode"   // engine array to Go
	PhaseArray    Phase = "array"    // array construction and access
	PhaseSession  Phase = "session"  // session operations
	PhaseRegistry Phase = "registry" // shared connection bookkeeping
	PhaseEngine   Phase = "engine"   // engine connection calls
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindConnection       Kind = "connection"
	KindEvaluation       Kind = "evaluation"
	KindNotFound         Kind = "not_found"
	KindUnsupportedType  Kind = "unsupported_type"
	KindUnsupportedValue Kind = "unsupported_value"
	KindBusy             Kind = "busy"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindOverflow         Kind = "overflow"
	KindInvalidInput     Kind = "invalid_input"
	KindDepthExceeded    Kind = "depth_exceeded"
	KindDestroyed        Kind = "destroyed"
	KindTypeMismatch     Kind = "type_mismatch"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Class  string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(joinPath(e.Path))
	}

	if e.GoType != "" || e.Class != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.Class != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", class ")
			b.WriteString(e.Class)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("class ")
			b.WriteString(e.Class)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.Class != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// joinPath renders a path, gluing index segments ("{2}", "(3)") to their parent.
func joinPath(path []string) string {
	var b strings.Builder
	for i, p := range path {
		if i > 0 && !strings.HasPrefix(p, "{") && !strings.HasPrefix(p, "(") && !strings.HasPrefix(p, "[") {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether any *Error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the element path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Class sets the engine class name
func (b *Builder) Class(c string) *Builder {
	b.err.Class = c
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// ConnectionFailed creates an error for an unreachable engine
func ConnectionFailed(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindConnection,
		Detail: detail,
		Cause:  cause,
	}
}

// NotOpen creates a connection error for an operation on a closed session
func NotOpen(phase Phase, op string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindConnection,
		Detail: fmt.Sprintf("%s: engine session is not open", op),
	}
}

// EvaluationFailed creates an evaluation error for expr
func EvaluationFailed(expr string, cause error) *Error {
	return &Error{
		Phase:  PhaseSession,
		Kind:   KindEvaluation,
		Detail: fmt.Sprintf("evaluate %q", truncate(expr, 64)),
		Value:  expr,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
		Value:  name,
	}
}

// UnsupportedType creates an error for an engine class that cannot be converted
func UnsupportedType(phase Phase, path []string, class string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupportedType,
		Path:   path,
		Class:  class,
		Detail: "unknown or unsupported array class",
	}
}

// UnsupportedValue creates an error for a Go value that cannot be converted
func UnsupportedValue(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupportedValue,
		Path:   path,
		GoType: goType,
		Detail: "unsupported value type",
	}
}

// Busy creates a busy error
func Busy(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindBusy,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, target string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Detail: fmt.Sprintf("value %v overflows %s", value, target),
		Value:  value,
	}
}

// DepthExceeded creates an error for nesting deeper than limit
func DepthExceeded(phase Phase, path []string, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDepthExceeded,
		Path:   path,
		Detail: fmt.Sprintf("nesting exceeds maximum depth %d", limit),
		Value:  limit,
	}
}

// Destroyed creates an error for use of a destroyed array
func Destroyed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDestroyed,
		Detail: fmt.Sprintf("%s has been destroyed", what),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, class string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		Class:  class,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
