package openaicompat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rhuss/runnerchat/pkg/api"
)

// MapHTTPError converts an HTTP response with a non-2xx status code into a
// transport_error APIError. It attempts to parse the response body as a
// ChatErrorResponse to extract a descriptive message.
func MapHTTPError(resp *http.Response) *api.APIError {
	message := ExtractErrorMessage(resp.Body)

	if message == "" {
		switch {
		case resp.StatusCode == http.StatusBadRequest:
			message = "backend rejected the request"
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			message = "backend authentication failed"
		case resp.StatusCode == http.StatusNotFound:
			message = "backend resource not found"
		case resp.StatusCode == http.StatusTooManyRequests:
			message = "backend rate limit exceeded"
		case resp.StatusCode >= http.StatusInternalServerError:
			message = fmt.Sprintf("backend server error (HTTP %d)", resp.StatusCode)
		default:
			message = fmt.Sprintf("unexpected backend status (HTTP %d)", resp.StatusCode)
		}
	}

	return api.NewTransportError(resp.StatusCode, message, nil)
}

// MapNetworkError converts a network-level error (connection refused, timeout,
// DNS resolution failure) into a transport_error APIError wrapping err.
func MapNetworkError(err error) *api.APIError {
	return api.NewTransportError(0, fmt.Sprintf("backend connection error: %s", err.Error()), err)
}

// ExtractErrorMessage tries to parse the body as a ChatErrorResponse and
// returns the error message if found. A short plain-text body is returned
// as is.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var errResp ChatErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil {
		return errResp.Error.Message
	}

	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "<") {
		return ""
	}
	return Truncate(text, 200)
}

// Truncate limits a string to maxLen bytes for log and error output.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
