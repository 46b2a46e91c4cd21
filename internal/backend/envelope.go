package backend

import (
	"encoding/json"
	"fmt"
)

// APIError is a non-2xx backend answer with its decoded error envelope.
// ErrorKey takes precedence during classification; ErrorMsg and Message
// are free-text fallbacks.
type APIError struct {
	StatusCode int
	ErrorKey   string
	ErrorMsg   string
	Message    string
}

// Error renders the most specific available marker for logs.
func (e *APIError) Error() string {
	switch {
	case e.ErrorKey != "":
		return fmt.Sprintf("backend error %d: %s", e.StatusCode, e.ErrorKey)
	case e.ErrorMsg != "":
		return fmt.Sprintf("backend error %d: %s", e.StatusCode, e.ErrorMsg)
	case e.Message != "":
		return fmt.Sprintf("backend error %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("backend error %d", e.StatusCode)
	}
}

// Detail returns the human-readable backend message, if any was supplied.
func (e *APIError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorMsg
}

// decodeAPIError parses the shared error envelope
// {error_key?, error?, message?} from any endpoint. A body that is not
// JSON still yields a usable APIError carrying the status code.
func decodeAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var envelope struct {
		ErrorKey string `json:"error_key"`
		Error    string `json:"error"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.ErrorKey = envelope.ErrorKey
		apiErr.ErrorMsg = envelope.Error
		apiErr.Message = envelope.Message
	}

	return apiErr
}
