package errors

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrorType classifies a plugin subsystem failure.
type ErrorType string

const (
	// Load errors
	ErrorTypeLink          ErrorType = "link"
	ErrorTypeEntryPoint    ErrorType = "entry_point"
	ErrorTypeContract      ErrorType = "contract"
	ErrorTypeNameCollision ErrorType = "name_collision"

	// Registry lookups
	ErrorTypeNotFound ErrorType = "not_found"

	// Lifecycle errors
	ErrorTypeLifecycle ErrorType = "lifecycle"

	// Unload errors
	ErrorTypeUnload ErrorType = "unload"

	// Resource errors (files, directories)
	ErrorTypeResource ErrorType = "resource"
)

// Sentinels usable with errors.Is. Matching is by type only.
var (
	ErrLink          = &PluginError{Type: ErrorTypeLink}
	ErrEntryPoint    = &PluginError{Type: ErrorTypeEntryPoint}
	ErrContract      = &PluginError{Type: ErrorTypeContract}
	ErrNameCollision = &PluginError{Type: ErrorTypeNameCollision}
	ErrNotFound      = &PluginError{Type: ErrorTypeNotFound}
	ErrLifecycle     = &PluginError{Type: ErrorTypeLifecycle}
	ErrUnload        = &PluginError{Type: ErrorTypeUnload}
	ErrResource      = &PluginError{Type: ErrorTypeResource}
)

// PluginError is a structured error carrying the plugin (or module file)
// it concerns.
type PluginError struct {
	Type       ErrorType
	Plugin     string
	Op         string
	Message    string
	InnerError error
}

// Error implements the error interface
func (e *PluginError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	if e.Plugin != "" {
		fmt.Fprintf(&b, "%q: ", e.Plugin)
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	default:
		b.WriteString(string(e.Type))
	}
	if e.InnerError != nil {
		b.WriteString(": ")
		b.WriteString(e.InnerError.Error())
	}
	return b.String()
}

// Unwrap returns the inner error
func (e *PluginError) Unwrap() error {
	return e.InnerError
}

// Is reports whether target is a PluginError of the same type.
func (e *PluginError) Is(target error) bool {
	if t, ok := target.(*PluginError); ok {
		return e.Type == t.Type
	}
	return false
}

// WithOp sets the operation name
func (e *PluginError) WithOp(op string) *PluginError {
	e.Op = op
	return e
}

// WithInnerError sets the inner error
func (e *PluginError) WithInnerError(err error) *PluginError {
	e.InnerError = err
	return e
}

// New creates a PluginError for the named plugin.
func New(errType ErrorType, plugin, message string) *PluginError {
	return &PluginError{
		Type:    errType,
		Plugin:  plugin,
		Message: message,
	}
}

// Wrap wraps err with a type and plugin name.
func Wrap(err error, errType ErrorType, plugin, message string) *PluginError {
	return New(errType, plugin, message).WithInnerError(err)
}

// ForModule creates a load error keyed by the module file's base name
// (without extension), which is the only identity known before the
// plugin instance exists.
func ForModule(errType ErrorType, path, message string, inner error) *PluginError {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return &PluginError{
		Type:       errType,
		Plugin:     base,
		Op:         "load",
		Message:    message,
		InnerError: inner,
	}
}

// TypeOf returns the ErrorType of the first PluginError in err's chain.
func TypeOf(err error) (ErrorType, bool) {
	var pe *PluginError
	if errors.As(err, &pe) {
		return pe.Type, true
	}
	return "", false
}

// PluginOf returns the plugin name carried by the first PluginError in err's chain.
func PluginOf(err error) string {
	var pe *PluginError
	if errors.As(err, &pe) {
		return pe.Plugin
	}
	return ""
}

// Is is errors.Is re-exported so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

// As is errors.As re-exported so callers need a single import.
func As(err error, target any) bool { return errors.As(err, target) }

// Join is errors.Join re-exported so callers need a single import.
func Join(errs ...error) error { return errors.Join(errs...) }
