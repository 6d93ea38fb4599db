package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "valid bearer token", header: "Bearer abc123", want: "abc123"},
		{name: "case insensitive", header: "bearer xyz789", want: "xyz789"},
		{name: "with extra spaces", header: "Bearer   token-with-spaces  ", want: "token-with-spaces"},
		{name: "no bearer scheme", header: "Basic abc123", want: ""},
		{name: "empty header", header: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			if got := ExtractBearerToken(req); got != tt.want {
				t.Errorf("ExtractBearerToken() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateCID(t *testing.T) {
	tests := []struct {
		cid  string
		want bool
	}{
		{"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", true},
		{"bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi", true},
		{"QmShort", false},
		{"../etc/passwd", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidateCID(tt.cid); got != tt.want {
			t.Errorf("ValidateCID(%q) = %v, want %v", tt.cid, got, tt.want)
		}
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusPaymentRequired, "Insufficient funds in vault")

	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("Expected status 402, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["error"] != "Insufficient funds in vault" {
		t.Errorf("Unexpected error message %q", body["error"])
	}
}

func TestDecodeJSONStrict(t *testing.T) {
	var out struct {
		Replicas int `json:"replicas"`
	}

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"replicas":3}`))
	if err := DecodeJSONStrict(req, &out); err != nil || out.Replicas != 3 {
		t.Fatalf("Expected replicas 3, got %d (err %v)", out.Replicas, err)
	}

	req = httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"replicas":3,"extra":true}`))
	if err := DecodeJSONStrict(req, &out); err == nil {
		t.Error("Expected unknown field to be rejected")
	}
}
