package cmdschema

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// SchemaError reports a malformed or conflicting declaration. It aborts loading a registry.
type SchemaError struct {
	Command string
	// Path points at the offending part of the declaration, i.e. "kwargs.PROPERTIES.kwargs.VERSION".
	Path   string
	Reason string
	Err    error
}

var _ error = (*SchemaError)(nil)

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("invalid schema")
	if e.Command != "" {
		b.WriteString(" for command ")
		b.WriteString(e.Command)
	}
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func schemaErrorf(command, path, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Command: command, Path: path, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned when looking up a command that was never registered.
// Callers usually fall back to generic parsing for these.
type NotFoundError struct {
	Name       string
	Suggestion string
}

var _ error = (*NotFoundError)(nil)

func (e *NotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown command %s (did you mean %s?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown command %s", e.Name)
}

// IsNotFound reports whether err (or any error it wraps) is a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return eris.As(err, &target)
}

// IsSchemaError reports whether err (or any error it wraps) is a *SchemaError.
func IsSchemaError(err error) bool {
	var target *SchemaError
	return eris.As(err, &target)
}

// ViolationKind classifies a Violation.
type ViolationKind string

const (
	MissingPositional ViolationKind = "missing-positional"
	ExtraPositional   ViolationKind = "extra-positional"
	UnknownFlag       ViolationKind = "unknown-flag"
	UnknownKeyword    ViolationKind = "unknown-keyword"
	KeywordArity      ViolationKind = "keyword-arity"
	UnexpectedBlock   ViolationKind = "unexpected-block"
)

// Violation is a single mismatch between an invocation and its command spec.
type Violation struct {
	// Path is the command name, followed by the keyword chain for nested blocks (i.e. "cc_library.PROPERTIES").
	Path       string
	Kind       ViolationKind
	Subject    string
	Expected   string
	Actual     string
	Suggestion string
}

func (v Violation) String() string {
	var msg string
	switch v.Kind {
	case MissingPositional:
		msg = fmt.Sprintf("missing required positional argument: expected %s, got %s", v.Expected, v.Actual)
	case ExtraPositional:
		msg = fmt.Sprintf("too many positional arguments: expected %s, got %s", v.Expected, v.Actual)
	case UnknownFlag:
		msg = fmt.Sprintf("unknown flag %s", v.Subject)
	case UnknownKeyword:
		msg = fmt.Sprintf("unknown keyword %s", v.Subject)
	case KeywordArity:
		msg = fmt.Sprintf("keyword %s expects %s value(s), got %s", v.Subject, v.Expected, v.Actual)
	case UnexpectedBlock:
		msg = fmt.Sprintf("keyword %s does not accept a nested block", v.Subject)
	default:
		msg = string(v.Kind)
	}

	if v.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", v.Suggestion)
	}
	return v.Path + ": " + msg
}

// ValidationError collects every violation found in one invocation.
type ValidationError struct {
	Command    string
	Violations []Violation
}

var _ error = (*ValidationError)(nil)

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Violations))
	for idx, v := range e.Violations {
		lines[idx] = v.String()
	}
	return fmt.Sprintf("invalid invocation of %s (%d problem(s)):\n  %s", e.Command, len(e.Violations), strings.Join(lines, "\n  "))
}
