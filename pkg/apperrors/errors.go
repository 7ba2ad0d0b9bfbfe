// Package apperrors defines the error kinds the suggestion engine distinguishes
// when deciding whether to degrade to the static suggestion or fail the request.
package apperrors

import (
	"errors"
	"fmt"
)

// ConfigurationError means a backend could not be constructed (missing URL,
// credential or invalid policy document). It is fatal and never retried.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Reason)
}

// NewConfigurationError builds a ConfigurationError
func NewConfigurationError(component, format string, args ...interface{}) error {
	return &ConfigurationError{Component: component, Reason: fmt.Sprintf(format, args...)}
}

// TransientBackendError wraps a network, timeout or decode failure from a
// telemetry or reasoning backend.
type TransientBackendError struct {
	Backend   string
	Operation string
	Err       error
}

func (e *TransientBackendError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Backend, e.Operation, e.Err)
}

func (e *TransientBackendError) Unwrap() error { return e.Err }

// NewTransientBackendError wraps err. A nil err yields nil.
func NewTransientBackendError(backend, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientBackendError{Backend: backend, Operation: operation, Err: err}
}

// ValidationError is a suggestion that violates the schema or its invariants
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid scaling suggestion: " + e.Problems[0]
	}
	msg := "invalid scaling suggestion:"
	for _, p := range e.Problems {
		msg += "\n  - " + p
	}
	return msg
}

// RouterError is malformed caller input. It maps to a 4xx response.
type RouterError struct {
	Message string
}

func (e *RouterError) Error() string { return e.Message }

// NewRouterError builds a RouterError
func NewRouterError(format string, args ...interface{}) error {
	return &RouterError{Message: fmt.Sprintf(format, args...)}
}

// IsConfiguration reports whether err is or wraps a ConfigurationError
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsTransient reports whether err is or wraps a TransientBackendError
func IsTransient(err error) bool {
	var target *TransientBackendError
	return errors.As(err, &target)
}

// IsValidation reports whether err is or wraps a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsRouter reports whether err is or wraps a RouterError
func IsRouter(err error) bool {
	var target *RouterError
	return errors.As(err, &target)
}
