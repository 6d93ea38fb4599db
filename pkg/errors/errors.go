package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Common sentinel errors for quick checks
var (
	// ErrInvalidInput is returned when request input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("operation timeout")

	// ErrClosed is returned when a closed client is used.
	ErrClosed = errors.New("client closed")

	// ErrInvalidTransition is returned when a state machine rejects a move.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Error is the base interface for all typed errors raised by the SDK.
type Error interface {
	error
	// Code returns the error code
	Code() string
	// Message returns the human-readable error message
	Message() string
	// Unwrap returns the underlying cause
	Unwrap() error
}

// DeploymentError is the catch-all base every SDK error embeds. It carries a
// machine code and a human message; callers that only care about "did the SDK
// fail" can match on it with errors.As.
type DeploymentError struct {
	code    string
	message string
	cause   error
	stack   []uintptr
}

// NewDeploymentError creates a base error with an explicit code.
func NewDeploymentError(code, message string, cause error) *DeploymentError {
	return &DeploymentError{
		code:    code,
		message: message,
		cause:   cause,
		stack:   captureStack(1),
	}
}

// Error implements the error interface.
func (e *DeploymentError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *DeploymentError) Code() string {
	return e.code
}

// Message returns the error message.
func (e *DeploymentError) Message() string {
	return e.message
}

// Unwrap returns the underlying cause.
func (e *DeploymentError) Unwrap() error {
	return e.cause
}

// Stack returns the captured stack trace.
func (e *DeploymentError) Stack() []uintptr {
	return e.stack
}

func captureStack(skip int) []uintptr {
	const maxDepth = 32
	stack := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, stack)
	return stack[:n]
}

// StackTrace returns a formatted stack trace string.
func (e *DeploymentError) StackTrace() string {
	if len(e.stack) == 0 {
		return ""
	}

	var buf strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return buf.String()
}

// ValidationError represents an input validation error. It is always raised
// before any network call is made.
type ValidationError struct {
	*DeploymentError
	Field string
	Value interface{}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		DeploymentError: &DeploymentError{
			code:    CodeValidation,
			message: message,
			stack:   captureStack(1),
		},
		Field: field,
		Value: value,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.message)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

// Is lets errors.Is(err, ErrInvalidInput) match validation failures.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// InvalidCredentialError is raised when a credential cannot be resolved or
// decoded. Source names where the secret came from, never the secret itself.
type InvalidCredentialError struct {
	*DeploymentError
	Source string
}

// NewInvalidCredentialError creates a new credential error.
func NewInvalidCredentialError(source, message string, cause error) *InvalidCredentialError {
	return &InvalidCredentialError{
		DeploymentError: &DeploymentError{
			code:    CodeInvalidCredential,
			message: message,
			cause:   cause,
			stack:   captureStack(1),
		},
		Source: source,
	}
}

// Error implements the error interface.
func (e *InvalidCredentialError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("invalid credential (%s): %s", e.Source, e.message)
	}
	return fmt.Sprintf("invalid credential: %s", e.message)
}

// SigningError is raised when the signer fails to produce a signature.
type SigningError struct {
	*DeploymentError
	Operation string
}

// NewSigningError creates a new signing error.
func NewSigningError(operation string, cause error) *SigningError {
	return &SigningError{
		DeploymentError: &DeploymentError{
			code:    CodeSigning,
			message: fmt.Sprintf("signing failed: %s", operation),
			cause:   cause,
			stack:   captureStack(1),
		},
		Operation: operation,
	}
}

// TransportError represents a failure to get a response at all: DNS, dial,
// reset or timeout. InFlight is set when the request may have reached its
// destination (for example a broadcast transaction whose confirmation never
// arrived), so the caller must not assume nothing happened.
type TransportError struct {
	*DeploymentError
	Method    string
	Target    string
	InFlight  bool
	Signature string
}

// NewTransportError creates a new transport error.
func NewTransportError(method, target string, cause error) *TransportError {
	return &TransportError{
		DeploymentError: &DeploymentError{
			code:    CodeTransport,
			message: fmt.Sprintf("%s %s: transport failure", method, target),
			cause:   cause,
			stack:   captureStack(1),
		},
		Method: method,
		Target: target,
	}
}

// MarkInFlight records that the operation may have taken effect.
func (e *TransportError) MarkInFlight(signature string) *TransportError {
	e.InFlight = true
	e.Signature = signature
	return e
}

// APIError is a non-success response from the deployment manager. The
// server's status, message and decoded body are kept verbatim.
type APIError struct {
	*DeploymentError
	StatusCode int
	Method     string
	Path       string
	Body       map[string]interface{}
}

// NewAPIError creates a new API error.
func NewAPIError(method, path string, statusCode int, message string, body map[string]interface{}) *APIError {
	return &APIError{
		DeploymentError: &DeploymentError{
			code:    HTTPStatusToCode(statusCode),
			message: message,
			stack:   captureStack(1),
		},
		StatusCode: statusCode,
		Method:     method,
		Path:       path,
		Body:       body,
	}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d on %s %s: %s", e.StatusCode, e.Method, e.Path, e.message)
}

// Shortfall is the missing amount of one asset.
type Shortfall struct {
	Asset string
	Have  uint64
	Need  uint64
}

// Missing returns how much more of the asset is required.
func (s Shortfall) Missing() uint64 {
	if s.Have >= s.Need {
		return 0
	}
	return s.Need - s.Have
}

// InsufficientBalanceError is raised by preflight checks before any
// transaction is attempted.
type InsufficientBalanceError struct {
	*DeploymentError
	Wallet     string
	Shortfalls []Shortfall
}

// NewInsufficientBalanceError creates a new insufficient balance error.
func NewInsufficientBalanceError(wallet string, shortfalls []Shortfall) *InsufficientBalanceError {
	parts := make([]string, 0, len(shortfalls))
	for _, s := range shortfalls {
		parts = append(parts, fmt.Sprintf("%s has %d, needs %d (short %d)", s.Asset, s.Have, s.Need, s.Missing()))
	}
	return &InsufficientBalanceError{
		DeploymentError: &DeploymentError{
			code:    CodeInsufficientBalance,
			message: "insufficient wallet balance: " + strings.Join(parts, "; "),
			stack:   captureStack(1),
		},
		Wallet:     wallet,
		Shortfalls: shortfalls,
	}
}

// WithdrawalReason explains why a withdrawal could not be completed.
type WithdrawalReason string

const (
	// ReasonMissingTokenAccount means the vault has no token account, so the
	// server cannot build a transaction that moves the token balance.
	ReasonMissingTokenAccount WithdrawalReason = "MISSING_TOKEN_ACCOUNT"

	// ReasonBuildRejected means the server refused to build the transaction.
	ReasonBuildRejected WithdrawalReason = "BUILD_REJECTED"

	// ReasonMalformedTransaction means the server's transaction could not be
	// decoded or does not require the wallet's signature.
	ReasonMalformedTransaction WithdrawalReason = "MALFORMED_TRANSACTION"

	// ReasonSubmissionFailed means the co-signed transaction failed on chain.
	ReasonSubmissionFailed WithdrawalReason = "SUBMISSION_FAILED"
)

// WithdrawalError is raised by the two-phase withdrawal flow.
type WithdrawalError struct {
	*DeploymentError
	Vault  string
	Reason WithdrawalReason
}

// NewWithdrawalError creates a new withdrawal error.
func NewWithdrawalError(vault string, reason WithdrawalReason, cause error) *WithdrawalError {
	code := CodeWithdrawal
	if reason == ReasonMissingTokenAccount {
		code = CodeMissingTokenAccount
	}
	return &WithdrawalError{
		DeploymentError: &DeploymentError{
			code:    code,
			message: fmt.Sprintf("withdrawal from vault %s failed (%s)", vault, reason),
			cause:   cause,
			stack:   captureStack(1),
		},
		Vault:  vault,
		Reason: reason,
	}
}

// TimeoutError represents a timeout error.
type TimeoutError struct {
	*DeploymentError
	Operation string
	Duration  string
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(operation, duration string) *TimeoutError {
	message := "operation timeout"
	if operation != "" {
		message = fmt.Sprintf("%s timeout", operation)
	}
	return &TimeoutError{
		DeploymentError: &DeploymentError{
			code:    CodeTimeout,
			message: message,
			stack:   captureStack(1),
		},
		Operation: operation,
		Duration:  duration,
	}
}

// Is lets errors.Is(err, ErrTimeout) match timeout errors.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Wrap wraps an error with additional context.
// If the error is already one of our custom types, it preserves the code
// and adds the cause chain. Otherwise the code is CodeInternal.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	code := CodeInternal
	if e, ok := err.(Error); ok {
		code = e.Code()
	}
	return &DeploymentError{
		code:    code,
		message: message,
		cause:   err,
		stack:   captureStack(1),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// New creates a new error with a message.
func New(message string) error {
	return &DeploymentError{
		code:    CodeInternal,
		message: message,
		stack:   captureStack(1),
	}
}

// Newf creates a new error with a formatted message.
func Newf(format string, args ...interface{}) error {
	return New(fmt.Sprintf(format, args...))
}
