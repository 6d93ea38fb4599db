package errors_test

import (
	"fmt"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

// Example demonstrates creating and using validation errors.
func ExampleNewValidationError() {
	err := errors.NewValidationError("timeout", "must be positive", 0)
	fmt.Println(err.Error())
	fmt.Println("Code:", err.Code())
	// Output:
	// validation error: timeout: must be positive
	// Code: VALIDATION_ERROR
}

// Example demonstrates reading server context from a wrapped API error.
func ExampleAsAPIError() {
	err := errors.Wrap(errors.FromResponse("GET", "/api/deployment/abc", 404, []byte(`{"error":"Deployment not found"}`)), "get deployment")

	if apiErr, ok := errors.AsAPIError(err); ok {
		fmt.Println(apiErr.StatusCode, apiErr.Message())
	}
	// Output:
	// 404 Deployment not found
}

// Example demonstrates deciding what to do after a failure.
func ExampleClassify() {
	err := errors.NewTransportError("send", "transaction", nil).MarkInFlight("5Kq")
	fmt.Println(errors.Classify(err))
	// Output:
	// maybe-submitted
}
