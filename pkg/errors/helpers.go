package errors

import (
	"context"
	"errors"
)

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}

	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsInvalidCredential checks if an error came from credential resolution.
func IsInvalidCredential(err error) bool {
	var credErr *InvalidCredentialError
	return err != nil && errors.As(err, &credErr)
}

// IsSigning checks if an error is a signing failure.
func IsSigning(err error) bool {
	var signErr *SigningError
	return err != nil && errors.As(err, &signErr)
}

// IsTransport checks if an error is a transport failure.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return err != nil && errors.As(err, &transportErr)
}

// AsAPIError returns the APIError in err's chain, if any.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if err == nil || !errors.As(err, &apiErr) {
		return nil, false
	}
	return apiErr, true
}

// IsAPIError checks if an error is a server response error.
func IsAPIError(err error) bool {
	_, ok := AsAPIError(err)
	return ok
}

// IsNotFound checks if the server reported a missing resource.
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Code() == CodeNotFound
}

// IsInsufficientBalance checks if a preflight check failed.
func IsInsufficientBalance(err error) bool {
	var balanceErr *InsufficientBalanceError
	return err != nil && errors.As(err, &balanceErr)
}

// IsWithdrawal checks if an error came from the withdrawal flow.
func IsWithdrawal(err error) bool {
	var withdrawalErr *WithdrawalError
	return err != nil && errors.As(err, &withdrawalErr)
}

// IsMissingTokenAccount checks if a withdrawal failed because the vault has
// no token account.
func IsMissingTokenAccount(err error) bool {
	var withdrawalErr *WithdrawalError
	return err != nil && errors.As(err, &withdrawalErr) && withdrawalErr.Reason == ReasonMissingTokenAccount
}

// IsTimeout checks if an error indicates a timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr) || errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// ShouldRetry checks if an operation could be retried by the caller based on
// the error. Anything that may already have taken effect is not retryable.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return !transportErr.InFlight
	}

	if IsTimeout(err) {
		return true
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return IsRetryable(customErr.Code())
	}

	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	if err == nil {
		return CodeOK
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Code()
	}

	switch {
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	case IsTimeout(err):
		return CodeTimeout
	case errors.Is(err, ErrInvalidInput):
		return CodeValidation
	default:
		return CodeInternal
	}
}

// GetErrorMessage extracts a human-readable message from an error.
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Message()
	}

	return err.Error()
}

// Cause returns the underlying cause of an error.
// It unwraps the error chain until it finds the root cause.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		underlying := unwrapper.Unwrap()
		if underlying == nil {
			return err
		}
		err = underlying
	}
}
