package errors

import (
	"net/http"
	"testing"
)

func TestFromResponse(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
	}{
		{"error field", 404, `{"error":"Deployment not found"}`, "Deployment not found", CodeNotFound},
		{"message field", 400, `{"message":"replicas must be >= 1"}`, "replicas must be >= 1", CodeInvalidArgument},
		{"plain text", 502, "bad gateway upstream", "bad gateway upstream", CodeUnavailable},
		{"empty body", 500, "", "Internal Server Error", CodeInternal},
		{"payment required", 402, `{"error":"insufficient funds"}`, "insufficient funds", CodePaymentRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromResponse(http.MethodGet, "/api/deployment/x", tt.status, []byte(tt.body))
			if err.Message() != tt.wantMessage {
				t.Errorf("Expected message %q, got %q", tt.wantMessage, err.Message())
			}
			if err.Code() != tt.wantCode {
				t.Errorf("Expected code %q, got %q", tt.wantCode, err.Code())
			}
			if err.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, err.StatusCode)
			}
		})
	}
}

func TestFromResponseKeepsBody(t *testing.T) {
	err := FromResponse(http.MethodPost, "/api/vault/v/withdraw", 500, []byte(`{"error":"x","details":{"account":"abc"}}`))
	if _, ok := err.Body["details"]; !ok {
		t.Errorf("Expected decoded body to keep details, got %v", err.Body)
	}
}

func TestGetCategory(t *testing.T) {
	tests := []struct {
		code string
		want ErrorCategory
	}{
		{CodeValidation, CategoryClient},
		{CodeInvalidCredential, CategoryAuth},
		{CodeTimeout, CategoryTimeout},
		{CodeTransport, CategoryNetwork},
		{CodeInsufficientBalance, CategoryFunds},
		{CodeInternal, CategoryServer},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := GetCategory(tt.code); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
