// Package util provides utility functions and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for registry build and reconciliation failures
var (
	ErrBuild            = errors.New("registry build failed")
	ErrOrderingCycle    = errors.New("ordering edges form a cycle")
	ErrUnknownPath      = errors.New("no handler bound to path")
	ErrNoWriter         = errors.New("path has no writer")
	ErrDeletedParent    = errors.New("node written below a deleted parent")
	ErrTransport        = errors.New("session transport failed")
	ErrRejected         = errors.New("device rejected command")
	ErrContract         = errors.New("command compiler contract violated")
	ErrCompile          = errors.New("command compilation failed")
	ErrRead             = errors.New("read failed")
	ErrNotConnected     = errors.New("device not connected")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddError adds an error message unconditionally
func (v *ValidationBuilder) AddError(message string) *ValidationBuilder {
	v.errors = append(v.errors, message)
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Messages returns the accumulated messages
func (v *ValidationBuilder) Messages() []string {
	return v.errors
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// BuildError collects every problem found while building a handler registry.
// It is fatal at startup and never produced per run.
type BuildError struct {
	Problems []string
	Cycles   []*CycleError
}

func (e *BuildError) Error() string {
	msgs := append([]string{}, e.Problems...)
	for _, c := range e.Cycles {
		msgs = append(msgs, c.Error())
	}
	if len(msgs) == 1 {
		return "registry build failed: " + msgs[0]
	}
	return fmt.Sprintf("registry build failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *BuildError) Unwrap() []error {
	errs := []error{ErrBuild}
	for _, c := range e.Cycles {
		errs = append(errs, c)
	}
	return errs
}

// CycleError names the set of paths whose ordering edges form a cycle
type CycleError struct {
	Paths []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("ordering cycle between %s", strings.Join(e.Paths, ", "))
}

func (e *CycleError) Unwrap() error {
	return ErrOrderingCycle
}

// NodeErrorKind classifies a node-scoped failure
type NodeErrorKind string

const (
	NodeErrorTransport NodeErrorKind = "transport"
	NodeErrorRejected  NodeErrorKind = "rejected"
	NodeErrorContract  NodeErrorKind = "contract"
	NodeErrorCompile   NodeErrorKind = "compile"
	NodeErrorRead      NodeErrorKind = "read"
)

var nodeErrorSentinels = map[NodeErrorKind]error{
	NodeErrorTransport: ErrTransport,
	NodeErrorRejected:  ErrRejected,
	NodeErrorContract:  ErrContract,
	NodeErrorCompile:   ErrCompile,
	NodeErrorRead:      ErrRead,
}

// NodeError is a failure attributed to exactly one configuration path.
// Response carries the device's literal output when the device produced any.
type NodeError struct {
	Kind      NodeErrorKind
	Path      string
	Operation string
	Response  string
	Pattern   string // error pattern that matched, for rejected commands
	Err       error
}

func (e *NodeError) Error() string {
	msg := fmt.Sprintf("%s %s failed (%s)", e.Operation, e.Path, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// DetailedError returns the message plus the device response, which may be long
func (e *NodeError) DetailedError() string {
	if e.Response == "" {
		return e.Error()
	}
	return fmt.Sprintf("%s\ndevice response:\n%s", e.Error(), e.Response)
}

func (e *NodeError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := nodeErrorSentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewNodeError creates a node-scoped error
func NewNodeError(kind NodeErrorKind, path, operation string, err error) *NodeError {
	return &NodeError{
		Kind:      kind,
		Path:      path,
		Operation: operation,
		Err:       err,
	}
}
