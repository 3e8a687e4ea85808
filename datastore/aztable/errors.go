/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package aztable

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	tserrors "github.com/suparena/tablestore/errors"
)

const emulatorHint = "if you are using the default development configuration, make sure the storage emulator is running, then retry"

// mapError translates SDK and network failures into the tablestore error kinds.
// Context cancellation is returned unchanged so errors.Is(err, context.Canceled) holds.
func mapError(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch status := respErr.StatusCode; {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return tserrors.NewAuthorizationError(op, resource, respErr.ErrorCode)
		case status == http.StatusNotFound:
			return tserrors.NewNotFoundError(notFoundType(respErr.ErrorCode), resource)
		case status == http.StatusConflict:
			return tserrors.NewAlreadyExistsError(conflictType(respErr.ErrorCode), resource)
		case status == http.StatusPreconditionFailed:
			return tserrors.NewConditionFailedError(op, "etag mismatch")
		case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
			return tserrors.NewTransportError(op, status, err)
		case status == http.StatusBadRequest:
			return tserrors.NewValidationError(resource, fmt.Sprintf("rejected by the service: %s", respErr.ErrorCode))
		default:
			return fmt.Errorf("%s on %s: %w", op, resource, err)
		}
	}
	return tserrors.NewTransportError(op, 0, err)
}

// mapUnavailable is mapError for the first call a client makes, where an unreachable
// endpoint means misconfiguration or a stopped emulator rather than a transient fault.
func mapUnavailable(op, resource, endpoint string, emulator bool, err error) error {
	if isUnreachable(err) {
		hint := ""
		if emulator {
			hint = emulatorHint
		}
		return tserrors.NewServiceUnavailableError(endpoint, hint, err)
	}
	return mapError(op, resource, err)
}

func isUnreachable(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}

func isTableExists(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusConflict &&
			strings.EqualFold(respErr.ErrorCode, string(aztables.TableAlreadyExists))
	}
	return false
}

func isStatus(err error, status int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == status
}

func notFoundType(code string) string {
	if strings.EqualFold(code, string(aztables.TableNotFound)) {
		return "table"
	}
	return "entity"
}

func conflictType(code string) string {
	if strings.EqualFold(code, string(aztables.TableAlreadyExists)) || strings.EqualFold(code, string(aztables.TableBeingDeleted)) {
		return "table"
	}
	return "entity"
}

func responseCode(err error) string {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.ErrorCode
	}
	return ""
}
