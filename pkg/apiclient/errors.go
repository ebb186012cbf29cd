package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is an error response from the server. Problem responses fill
// Title and Detail, failed health probes fill Detail from the envelope.
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title"`
	Detail     string `json:"detail,omitempty"`

	// NativeStatus is the HTTP Server API status code behind the failure,
	// zero when there is none.
	NativeStatus     uint32 `json:"status_code,omitempty"`
	NativeStatusText string `json:"status_text,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Title
	}
	if e.NativeStatusText != "" {
		return fmt.Sprintf("%d: %s [%s]", e.StatusCode, msg, e.NativeStatusText)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, msg)
}

// IsNotFound reports whether the server answered 404.
func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// IsConflict reports whether the server answered 409.
func (e *APIError) IsConflict() bool { return e.StatusCode == http.StatusConflict }

// IsNotSupported reports whether the server lacks the requested capability.
func (e *APIError) IsNotSupported() bool { return e.StatusCode == http.StatusNotImplemented }

// IsUnavailable reports whether a probe reported the server as not ready.
func (e *APIError) IsUnavailable() bool { return e.StatusCode == http.StatusServiceUnavailable }

// AsAPIError unwraps an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func parseError(status int, body []byte) error {
	apiErr := &APIError{}
	if json.Unmarshal(body, apiErr) == nil && (apiErr.Title != "" || apiErr.Detail != "") {
		apiErr.StatusCode = status
		return apiErr
	}

	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != "" {
		return &APIError{StatusCode: status, Title: http.StatusText(status), Detail: env.Error}
	}

	return &APIError{
		StatusCode: status,
		Title:      http.StatusText(status),
		Detail:     strings.TrimSpace(string(body)),
	}
}
