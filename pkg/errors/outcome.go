package errors

import "errors"

// Outcome tells a caller what may have happened remotely when an operation
// failed.
type Outcome int

const (
	// OutcomeUnknown is returned for errors the SDK did not classify.
	OutcomeUnknown Outcome = iota
	// OutcomeNothingHappened means the failure occurred before anything was
	// sent: bad input, bad credential, failed preflight or a dial error.
	OutcomeNothingHappened
	// OutcomeRejected means the remote side answered and refused.
	OutcomeRejected
	// OutcomeMaybeSubmitted means a request or transaction may have taken
	// effect even though no confirmation was received.
	OutcomeMaybeSubmitted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNothingHappened:
		return "nothing-happened"
	case OutcomeRejected:
		return "rejected"
	case OutcomeMaybeSubmitted:
		return "maybe-submitted"
	default:
		return "unknown"
	}
}

// Classify maps an error to an Outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeUnknown
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		if transportErr.InFlight {
			return OutcomeMaybeSubmitted
		}
		return OutcomeNothingHappened
	}

	switch {
	case IsValidation(err), IsInvalidCredential(err), IsSigning(err), IsInsufficientBalance(err):
		return OutcomeNothingHappened
	case errors.Is(err, ErrInvalidTransition):
		return OutcomeNothingHappened
	case IsAPIError(err), GetErrorCode(err) == CodeChainError:
		return OutcomeRejected
	}

	var withdrawalErr *WithdrawalError
	if errors.As(err, &withdrawalErr) && withdrawalErr.Reason == ReasonSubmissionFailed {
		return OutcomeRejected
	}
	return OutcomeUnknown
}
