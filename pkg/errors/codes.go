package errors

// Error codes for categorizing errors.
const (
	// CodeOK indicates success (not an error).
	CodeOK = "OK"

	// CodeCancelled indicates the operation was cancelled.
	CodeCancelled = "CANCELLED"

	// CodeInvalidArgument indicates the server rejected an argument.
	CodeInvalidArgument = "INVALID_ARGUMENT"

	// CodeDeadlineExceeded indicates operation deadline was exceeded.
	CodeDeadlineExceeded = "DEADLINE_EXCEEDED"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound = "NOT_FOUND"

	// CodeAlreadyExists indicates a conflicting resource state.
	CodeAlreadyExists = "ALREADY_EXISTS"

	// CodePermissionDenied indicates the caller doesn't have permission.
	CodePermissionDenied = "PERMISSION_DENIED"

	// CodeResourceExhausted indicates rate limiting or quota exhaustion.
	CodeResourceExhausted = "RESOURCE_EXHAUSTED"

	// CodePaymentRequired indicates the server refused for funding reasons.
	CodePaymentRequired = "PAYMENT_REQUIRED"

	// CodeUnimplemented indicates operation is not implemented or not supported.
	CodeUnimplemented = "UNIMPLEMENTED"

	// CodeInternal indicates internal errors.
	CodeInternal = "INTERNAL"

	// CodeUnavailable indicates the service is currently unavailable.
	CodeUnavailable = "UNAVAILABLE"

	// CodeUnauthenticated indicates the request does not have valid authentication.
	CodeUnauthenticated = "UNAUTHENTICATED"

	// Domain-specific error codes

	// CodeValidation indicates input validation failed.
	CodeValidation = "VALIDATION_ERROR"

	// CodeInvalidCredential indicates the wallet credential is unusable.
	CodeInvalidCredential = "INVALID_CREDENTIAL"

	// CodeSigning indicates a signature could not be produced.
	CodeSigning = "SIGNING_ERROR"

	// CodeTransport indicates no response was received.
	CodeTransport = "TRANSPORT_ERROR"

	// CodeTimeout indicates an operation timed out.
	CodeTimeout = "TIMEOUT"

	// CodeInsufficientBalance indicates a preflight balance check failed.
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"

	// CodeWithdrawal indicates the withdrawal flow failed.
	CodeWithdrawal = "WITHDRAWAL_ERROR"

	// CodeMissingTokenAccount indicates the vault has no token account.
	CodeMissingTokenAccount = "MISSING_TOKEN_ACCOUNT"

	// CodeUnexpectedState indicates the server acknowledged a mutation but
	// reported a different resulting state.
	CodeUnexpectedState = "UNEXPECTED_STATE"

	// CodeUnexpectedStatus indicates the server sent an unknown status value.
	CodeUnexpectedStatus = "UNEXPECTED_STATUS"

	// CodeConfigError indicates a configuration error.
	CodeConfigError = "CONFIG_ERROR"

	// CodeSerializationError indicates serialization/deserialization failed.
	CodeSerializationError = "SERIALIZATION_ERROR"

	// CodeChainError indicates the chain rejected or failed a transaction.
	CodeChainError = "CHAIN_ERROR"
)

// ErrorCategory represents a high-level error category.
type ErrorCategory string

const (
	// CategoryClient indicates a client-side error (4xx).
	CategoryClient ErrorCategory = "CLIENT_ERROR"

	// CategoryServer indicates a server-side error (5xx).
	CategoryServer ErrorCategory = "SERVER_ERROR"

	// CategoryNetwork indicates a network-related error.
	CategoryNetwork ErrorCategory = "NETWORK_ERROR"

	// CategoryTimeout indicates a timeout error.
	CategoryTimeout ErrorCategory = "TIMEOUT_ERROR"

	// CategoryAuth indicates an authentication/authorization error.
	CategoryAuth ErrorCategory = "AUTH_ERROR"

	// CategoryFunds indicates a balance or funding problem.
	CategoryFunds ErrorCategory = "FUNDS_ERROR"
)

// GetCategory returns the category for an error code.
func GetCategory(code string) ErrorCategory {
	switch code {
	case CodeInvalidArgument, CodeValidation, CodeNotFound,
		CodeAlreadyExists, CodeUnexpectedState, CodeUnexpectedStatus:
		return CategoryClient

	case CodeUnauthenticated, CodePermissionDenied,
		CodeInvalidCredential, CodeSigning:
		return CategoryAuth

	case CodeTimeout, CodeDeadlineExceeded:
		return CategoryTimeout

	case CodeTransport, CodeUnavailable:
		return CategoryNetwork

	case CodeInsufficientBalance, CodePaymentRequired, CodeMissingTokenAccount:
		return CategoryFunds

	default:
		return CategoryServer
	}
}

// IsRetryable returns true if an error with the given code is worth another
// attempt by the caller. The SDK itself never retries these.
func IsRetryable(code string) bool {
	switch code {
	case CodeTimeout, CodeDeadlineExceeded,
		CodeUnavailable, CodeResourceExhausted,
		CodeTransport:
		return true
	default:
		return false
	}
}

// IsClientError returns true if the error is a client error (4xx).
func IsClientError(code string) bool {
	return GetCategory(code) == CategoryClient
}

// IsServerError returns true if the error is a server error (5xx).
func IsServerError(code string) bool {
	return GetCategory(code) == CategoryServer
}
