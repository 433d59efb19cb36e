package api

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeInvalidRequest    ErrorType = "invalid_request"
	ErrorTypeMalformedResponse ErrorType = "malformed_response"
	ErrorTypeStreamInterrupted ErrorType = "stream_interrupted"
	ErrorTypeTransport         ErrorType = "transport_error"
)

// APIError represents a structured error with type, param, and message.
//
// StatusCode is set for transport errors caused by a non-2xx HTTP response.
// Partial holds the text already delivered when a stream was interrupted.
// Err is the underlying cause, if any, and is returned by Unwrap.
type APIError struct {
	Type       ErrorType `json:"type"`
	Param      string    `json:"param,omitempty"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	Partial    string    `json:"partial,omitempty"`
	Err        error     `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Param != "" {
		msg += fmt.Sprintf(" (param: %s)", e.Param)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status: %d)", e.StatusCode)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewMalformedResponseError creates an APIError for a server payload that
// lacks required fields.
func NewMalformedResponseError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeMalformedResponse,
		Message: message,
	}
}

// NewStreamInterruptedError creates an APIError for a stream that ended
// before a terminal chunk. partial is the text emitted so far.
func NewStreamInterruptedError(partial string, cause error) *APIError {
	message := "stream ended before a terminal chunk"
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}
	return &APIError{
		Type:    ErrorTypeStreamInterrupted,
		Message: message,
		Partial: partial,
		Err:     cause,
	}
}

// NewTransportError creates an APIError for a network failure or a non-2xx
// HTTP status. statusCode is zero for network-level failures.
func NewTransportError(statusCode int, message string, cause error) *APIError {
	return &APIError{
		Type:       ErrorTypeTransport,
		Message:    message,
		StatusCode: statusCode,
		Err:        cause,
	}
}

// IsErrorType reports whether err is an *APIError of the given type.
func IsErrorType(err error, t ErrorType) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == t
}
