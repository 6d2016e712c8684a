package domain

import (
	"errors"
	"fmt"
)

// ConfigErrorKind classifies configuration resolution failures.
type ConfigErrorKind string

const (
	ConfigMissingFile   ConfigErrorKind = "missing_file"
	ConfigMalformedLine ConfigErrorKind = "malformed_line"
	ConfigDuplicatePort ConfigErrorKind = "duplicate_port"
	ConfigInvalidPort   ConfigErrorKind = "invalid_port"
)

// ConfigError is returned by the resolver. Resolution is all-or-nothing: a
// single bad line fails the whole resolve, identified by file and line.
type ConfigError struct {
	Kind   ConfigErrorKind
	File   string
	Line   int
	Detail string
}

func (e *ConfigError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("config %s: %s:%d: %s", e.Kind, e.File, e.Line, e.Detail)
	case e.File != "":
		return fmt.Sprintf("config %s: %s: %s", e.Kind, e.File, e.Detail)
	default:
		return fmt.Sprintf("config %s: %s", e.Kind, e.Detail)
	}
}

// RuntimeErrorKind classifies container runtime failures.
type RuntimeErrorKind string

const (
	RuntimeNotFound         RuntimeErrorKind = "not_found"
	RuntimeAlreadyExists    RuntimeErrorKind = "already_exists"
	RuntimeTransportFailure RuntimeErrorKind = "transport_failure"
	RuntimeTimeout          RuntimeErrorKind = "timeout"
)

// RuntimeError wraps a failure from the container runtime control plane.
// The runtime client never retries; the controller decides recoverability.
type RuntimeError struct {
	Kind  RuntimeErrorKind
	Name  string // container or image the operation targeted
	Cause error
}

func (e *RuntimeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("runtime %s: %s: %v", e.Kind, e.Name, e.Cause)
	}
	return fmt.Sprintf("runtime %s: %s", e.Kind, e.Name)
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

// IsNotFound reports whether err is a RuntimeError of kind not_found.
func IsNotFound(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Kind == RuntimeNotFound
}

// IsAlreadyExists reports whether err is a RuntimeError of kind already_exists.
func IsAlreadyExists(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Kind == RuntimeAlreadyExists
}

// IsTransportFailure reports whether err is a RuntimeError of kind
// transport_failure.
func IsTransportFailure(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Kind == RuntimeTransportFailure
}

// SelectionErrorKind classifies interactive selection failures.
type SelectionErrorKind string

const (
	SelectionNoMatch       SelectionErrorKind = "no_match"
	SelectionInvalidChoice SelectionErrorKind = "invalid_choice"
)

// SelectionError is returned when an ambiguous operation cannot be resolved
// to exactly one container. There is never a default pick.
type SelectionError struct {
	Kind   SelectionErrorKind
	Detail string
}

func (e *SelectionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("selection %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("selection %s", e.Kind)
}

// PreconditionErrorKind classifies state-machine guard failures.
type PreconditionErrorKind string

const (
	PreconditionNotRunning   PreconditionErrorKind = "not_running"
	PreconditionStillRunning PreconditionErrorKind = "still_running"
)

// PreconditionError reports a verb invoked against a container in the wrong
// state. Hint names the step that would move the container into the right
// state.
type PreconditionError struct {
	Kind PreconditionErrorKind
	Name string
	Hint string
}

func (e *PreconditionError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("precondition %s: %s (%s)", e.Kind, e.Name, e.Hint)
	}
	return fmt.Sprintf("precondition %s: %s", e.Kind, e.Name)
}
