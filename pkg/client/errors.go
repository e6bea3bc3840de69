package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownSource is returned when a source kind does not fit the call.
var ErrUnknownSource = errors.New("client: unknown source type")

// APIError is a structured error answered by the provider.
type APIError struct {
	StatusCode int    `json:"-"`
	ErrCode    string `json:"err_code"`
	ErrMsg     string `json:"err_msg"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: %s: %s (status=%d, request=%s)", e.ErrCode, e.ErrMsg, e.StatusCode, e.RequestID)
}

func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == 429
}

func (e *APIError) Retryable() bool {
	return e.IsRateLimit() || e.StatusCode >= 500
}

// UnknownAPIError is a failed response whose body could not be understood.
type UnknownAPIError struct {
	StatusCode int
	Body       string
}

func (e *UnknownAPIError) Error() string {
	return fmt.Sprintf("client: unexpected response (status=%d): %s", e.StatusCode, e.Body)
}

// AsAPIError extracts *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var e *APIError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func parseError(status int, body []byte) error {
	var payload struct {
		ErrCode   string `json:"err_code"`
		ErrMsg    string `json:"err_msg"`
		Category  string `json:"category"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		code, msg := payload.ErrCode, payload.ErrMsg
		if code == "" {
			code = payload.Category
		}
		if msg == "" {
			msg = payload.Message
		}
		if code != "" || msg != "" {
			return &APIError{StatusCode: status, ErrCode: code, ErrMsg: msg, RequestID: payload.RequestID}
		}
	}
	return &UnknownAPIError{StatusCode: status, Body: string(body)}
}
