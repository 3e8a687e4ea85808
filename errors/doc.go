/*
Package errors provides semantic error types for the tablestore client.

Every failure returned by the client maps to exactly one kind, so callers can
branch on the kind instead of parsing messages or HTTP status codes:

	var (
	    ErrConfiguration       = errors.New("invalid configuration")
	    ErrServiceUnavailable  = errors.New("service unavailable")
	    ErrTransport           = errors.New("transport error")
	    ErrNotFound            = errors.New("entity not found")
	    ErrConditionFailed     = errors.New("condition check failed")
	    ErrAuthorizationDenied = errors.New("authorization denied")
	    ErrInvalidInput        = errors.New("invalid input")
	    ErrAlreadyExists       = errors.New("entity already exists")
	)

Only transport errors are retryable; see IsRetryable.

Usage:

	customer, err := table.GetByKey(ctx, "1", "Aamir Akhtar")
	if err != nil {
	    switch {
	    case errors.IsNotFound(err):
	        // expected miss
	    case errors.IsAuthorizationDenied(err):
	        // the SAS does not grant Query
	    default:
	        return err
	    }
	}

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
*/
package errors
