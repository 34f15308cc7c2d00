package allegro

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotConfigured indicates the OAuth client id/secret are missing.
var ErrNotConfigured = errors.New("allegro: client credentials not configured")

// UpstreamError carries a non-2xx marketplace response for diagnosis.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if msg := extractMessage([]byte(e.Body)); msg != "" {
		return fmt.Sprintf("allegro api error (%d): %s", e.Status, msg)
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		return fmt.Sprintf("allegro api error (%d): %s", e.Status, body)
	}
	return fmt.Sprintf("allegro api error (%d)", e.Status)
}

// Unauthorized reports whether the upstream rejected the credential.
func (e *UpstreamError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

func newUpstreamError(status int, payload []byte) *UpstreamError {
	return &UpstreamError{Status: status, Body: string(payload)}
}

// IsUnauthorized reports whether err is an upstream 401.
func IsUnauthorized(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Unauthorized()
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Errors           []struct {
		Message     string `json:"message"`
		UserMessage string `json:"userMessage"`
	} `json:"errors"`
}

// extractMessage digs a human-readable message out of the two error shapes
// Allegro uses: OAuth (error/error_description) and REST (errors[].message).
func extractMessage(payload []byte) string {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err != nil {
		return ""
	}
	if apiErr.ErrorDescription != "" {
		return apiErr.ErrorDescription
	}
	if len(apiErr.Errors) > 0 {
		if apiErr.Errors[0].Message != "" {
			return apiErr.Errors[0].Message
		}
		if apiErr.Errors[0].UserMessage != "" {
			return apiErr.Errors[0].UserMessage
		}
	}
	return apiErr.Error
}
