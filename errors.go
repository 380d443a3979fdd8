package cinject

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are wrapped in the typed errors below; match them with errors.Is.

var (
	// Resolution errors.
	ErrKeyNotFound = errors.New("no registration found and key is not constructible")
	ErrKeyInvalid  = errors.New("key is invalid")

	// Registration errors.
	ErrFactoryNil     = errors.New("factory cannot be nil")
	ErrConstructorNil = errors.New("constructor cannot be nil")

	// Container errors.
	ErrContainerNil         = errors.New("container cannot be nil")
	ErrNoContainerInContext = errors.New("no container found in context")
)

var (
	_ error = (*ResolutionError)(nil)
	_ error = (*CircularDependencyError)(nil)
	_ error = (*ConstructorError)(nil)
	_ error = (*TypeMismatchError)(nil)
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// ResolutionError indicates that a key could not be resolved: nothing is
// registered under it in the container's ancestor chain and it is not a
// constructible type.
type ResolutionError struct {
	Key   Key
	Cause error
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("the specified key %s cannot be resolved", e.Key))

	if e.Cause != nil && e.Cause != ErrKeyNotFound {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	switch e.Key.Kind() {
	case KindSymbol, KindName:
		b.WriteString("\n\nRegister a constant, factory or type for this key on the container or one of its ancestors.")
	case KindType:
		b.WriteString("\n\nOnly struct and pointer-to-struct types, or types with a constructor declared with Injectable, are resolved without a registration.")
	}

	return b.String()
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// CircularDependencyError indicates that resolving a key required resolving
// that same key again.
type CircularDependencyError struct {
	// Path lists the keys being resolved, outermost first. The last entry is
	// the key that closed the cycle.
	Path []Key
}

func (e *CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")

	for i, key := range e.Path {
		b.WriteString(fmt.Sprintf("    %s", key))
		if i == len(e.Path)-1 {
			b.WriteString(" (cycle)")
		}
		b.WriteString("\n")
		if i < len(e.Path)-1 {
			b.WriteString("      ↓\n")
		}
	}

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Use a factory that resolves the dependency lazily\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}

// ConstructorError indicates that a constructor cannot be used, either
// because its signature is unsupported or because the resolved dependencies
// do not fit its parameters. Errors returned by the constructor itself are
// never wrapped in a ConstructorError.
type ConstructorError struct {
	Type  reflect.Type
	Cause error
}

func (e *ConstructorError) Error() string {
	return fmt.Sprintf("invalid constructor %s: %v", formatType(e.Type), e.Cause)
}

func (e *ConstructorError) Unwrap() error {
	return e.Cause
}

// TypeMismatchError indicates a type assertion failed.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string // "type assertion", "token type assertion", etc.
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, formatType(e.Expected), formatType(e.Actual))
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		// Format pointers as *Type instead of *package.Type
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Func:
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
