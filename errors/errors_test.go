/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("Customer", "1|Aamir Akhtar")

	expected := `Customer with key "1|Aamir Akhtar" not found`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}

	if !IsNotFound(err) {
		t.Error("IsNotFound should return true for NotFoundError")
	}
}

func TestAlreadyExistsError(t *testing.T) {
	err := NewAlreadyExistsError("Customer", "2|Johnson Mary")

	expected := `Customer with key "2|Johnson Mary" already exists`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !IsAlreadyExists(err) {
		t.Error("IsAlreadyExists should return true for AlreadyExistsError")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		message  string
		expected string
	}{
		{
			name:     "with field",
			field:    "storedPolicy",
			message:  "cannot be combined with ad-hoc parameters",
			expected: `validation failed for field "storedPolicy": cannot be combined with ad-hoc parameters`,
		},
		{
			name:     "without field",
			field:    "",
			message:  "missing required fields",
			expected: "validation failed: missing required fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.field, tt.message)

			if err.Error() != tt.expected {
				t.Errorf("Expected error message %q, got %q", tt.expected, err.Error())
			}

			if !errors.Is(err, ErrInvalidArgument) {
				t.Error("ValidationError should match ErrInvalidArgument")
			}

			if !IsInvalidArgument(err) {
				t.Error("IsInvalidArgument should return true for ValidationError")
			}
		})
	}
}

func TestConditionFailedError(t *testing.T) {
	err := NewConditionFailedError("delete", `If-Match: W/"datetime'2025-01-01'"`)

	if !errors.Is(err, ErrPreconditionFailed) {
		t.Error("ConditionFailedError should match ErrPreconditionFailed")
	}
	if !IsPreconditionFailed(err) {
		t.Error("IsPreconditionFailed should return true for ConditionFailedError")
	}
}

func TestConfigurationError(t *testing.T) {
	cause := fmt.Errorf("illegal base64 data at input byte 3")
	err := NewConfigurationError("AccountKey", "not valid base64", cause)

	expected := "invalid storage configuration: AccountKey: not valid base64: illegal base64 data at input byte 3"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if !IsConfiguration(err) {
		t.Error("IsConfiguration should return true for ConfigurationError")
	}
	if !errors.Is(err, cause) {
		t.Error("ConfigurationError should unwrap to its cause")
	}
	if IsRetryable(err) {
		t.Error("configuration errors are not retryable")
	}
}

func TestServiceUnavailableError(t *testing.T) {
	err := NewServiceUnavailableError("http://127.0.0.1:10002/devstoreaccount1", "start the storage emulator", fmt.Errorf("connection refused"))

	expected := "table service at http://127.0.0.1:10002/devstoreaccount1 is unavailable: connection refused (start the storage emulator)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if !IsServiceUnavailable(err) {
		t.Error("IsServiceUnavailable should return true for ServiceUnavailableError")
	}
	if IsRetryable(err) {
		t.Error("service unavailable errors are not retried implicitly")
	}
}

func TestTransportError(t *testing.T) {
	err := NewTransportError("GetEntity", 503, fmt.Errorf("server busy"))

	expected := "GetEntity failed with status 503: server busy"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if !IsTransport(err) || !IsRetryable(err) {
		t.Error("TransportError should be a retryable transport error")
	}

	canceled := NewTransportError("UpsertEntity", 0, context.Canceled)
	if !errors.Is(canceled, context.Canceled) {
		t.Error("TransportError should preserve context cancellation")
	}
}

func TestAuthorizationError(t *testing.T) {
	err := NewAuthorizationError("AddEntity", "Customers1a2b3", "AuthorizationPermissionMismatch")

	expected := "AddEntity on Customers1a2b3 denied: AuthorizationPermissionMismatch"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if !IsAuthorizationDenied(err) {
		t.Error("IsAuthorizationDenied should return true for AuthorizationError")
	}
	if IsNotFound(err) || IsValidationError(err) || IsRetryable(err) {
		t.Error("AuthorizationError must not match other kinds")
	}
}

func TestErrorWrapping(t *testing.T) {
	original := NewNotFoundError("Customer", "1|Aamir Akhtar")
	wrapped := fmt.Errorf("read customer: %w", original)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("Wrapped NotFoundError should still match ErrNotFound")
	}

	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should work with wrapped errors")
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrConditionFailed,
		ErrConfiguration,
		ErrServiceUnavailable,
		ErrTransport,
		ErrAuthorizationDenied,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v matches %v", err1, err2)
			}
		}
	}
}
