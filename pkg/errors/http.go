package errors

import (
	"encoding/json"
	"net/http"
	"strings"
)

// FromResponse builds an APIError from a non-success manager response. The
// message is taken from an {"error": ...} or {"message": ...} body when
// present and falls back to the raw body, then to the status text.
func FromResponse(method, path string, status int, raw []byte) *APIError {
	var body map[string]interface{}
	message := ""
	if len(raw) > 0 && json.Unmarshal(raw, &body) == nil {
		for _, key := range []string{"error", "message", "detail"} {
			if s, ok := body[key].(string); ok && s != "" {
				message = s
				break
			}
		}
	}
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return NewAPIError(method, path, status, message, body)
}

// HTTPStatusToCode converts an HTTP status code to an error code.
func HTTPStatusToCode(status int) string {
	switch status {
	case http.StatusOK:
		return CodeOK
	case http.StatusBadRequest:
		return CodeInvalidArgument
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusPaymentRequired:
		return CodePaymentRequired
	case http.StatusForbidden:
		return CodePermissionDenied
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeAlreadyExists
	case http.StatusRequestTimeout:
		return CodeDeadlineExceeded
	case http.StatusTooManyRequests:
		return CodeResourceExhausted
	case http.StatusNotImplemented:
		return CodeUnimplemented
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return CodeUnavailable
	case http.StatusInternalServerError:
		return CodeInternal
	default:
		if status >= 400 && status < 500 {
			return CodeInvalidArgument
		}
		return CodeInternal
	}
}
