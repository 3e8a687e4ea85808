/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity, table or policy is not found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when attempting to add an entity that already exists
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when caller input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a version or existence precondition fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrConfiguration is returned when a connection descriptor cannot be used
	ErrConfiguration = errors.New("invalid configuration")

	// ErrServiceUnavailable is returned when the table service cannot be reached at all
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTransport is returned for transient network or server faults
	ErrTransport = errors.New("transport error")

	// ErrAuthorizationDenied is returned when the credential or SAS lacks a permission
	ErrAuthorizationDenied = errors.New("authorization denied")
)

// Aliases matching the names used in the client documentation.
var (
	ErrInvalidArgument    = ErrInvalidInput
	ErrPreconditionFailed = ErrConditionFailed
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an entity already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// ConfigurationError represents a malformed or incomplete connection descriptor
type ConfigurationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("invalid storage configuration: %s: %v", msg, e.Err)
	}
	return fmt.Sprintf("invalid storage configuration: %s", msg)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ServiceUnavailableError is returned when the endpoint cannot be reached.
// Hint carries an operator-facing remediation, e.g. starting the emulator.
type ServiceUnavailableError struct {
	Endpoint string
	Hint     string
	Err      error
}

func (e *ServiceUnavailableError) Error() string {
	msg := fmt.Sprintf("table service at %s is unavailable", e.Endpoint)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Hint != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Hint)
	}
	return msg
}

func (e *ServiceUnavailableError) Is(target error) bool {
	return target == ErrServiceUnavailable
}

func (e *ServiceUnavailableError) Unwrap() error {
	return e.Err
}

// TransportError represents a transient failure talking to the service.
// StatusCode is zero when no response was received.
type TransportError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed with status %d: %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthorizationError is returned when the service rejects the request's credential
type AuthorizationError struct {
	Operation string
	Resource  string
	Code      string
}

func (e *AuthorizationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s on %s denied: %s", e.Operation, e.Resource, e.Code)
	}
	return fmt.Sprintf("%s on %s denied", e.Operation, e.Resource)
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrAuthorizationDenied
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(field, message string, err error) error {
	return &ConfigurationError{Field: field, Message: message, Err: err}
}

// NewServiceUnavailableError creates a new ServiceUnavailableError
func NewServiceUnavailableError(endpoint, hint string, err error) error {
	return &ServiceUnavailableError{Endpoint: endpoint, Hint: hint, Err: err}
}

// NewTransportError creates a new TransportError
func NewTransportError(operation string, statusCode int, err error) error {
	return &TransportError{Operation: operation, StatusCode: statusCode, Err: err}
}

// NewAuthorizationError creates a new AuthorizationError
func NewAuthorizationError(operation, resource, code string) error {
	return &AuthorizationError{Operation: operation, Resource: resource, Code: code}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsInvalidArgument is an alias of IsValidationError
func IsInvalidArgument(err error) bool {
	return IsValidationError(err)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsPreconditionFailed is an alias of IsConditionFailed
func IsPreconditionFailed(err error) bool {
	return IsConditionFailed(err)
}

// IsConfiguration checks if an error is a configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsServiceUnavailable checks if an error reports an unreachable service
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// IsTransport checks if an error is a transient transport error
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsAuthorizationDenied checks if an error is an authorization failure
func IsAuthorizationDenied(err error) bool {
	return errors.Is(err, ErrAuthorizationDenied)
}

// IsRetryable reports whether a caller may retry the failed operation as-is.
// Only transport errors qualify.
func IsRetryable(err error) bool {
	return IsTransport(err)
}
