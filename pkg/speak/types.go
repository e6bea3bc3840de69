package speak

import "fmt"

type Metadata struct {
	Type         string `json:"type"`
	RequestID    string `json:"request_id"`
	ModelName    string `json:"model_name"`
	ModelVersion string `json:"model_version"`
	ModelUUID    string `json:"model_uuid"`
}

// Flushed confirms that all text before the matching Flush was synthesized.
type Flushed struct {
	Type       string `json:"type"`
	SequenceID int    `json:"sequence_id"`
}

type Cleared struct {
	Type       string `json:"type"`
	SequenceID int    `json:"sequence_id"`
}

// ErrorResponse is a warning or error message of a live session.
type ErrorResponse struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Code        string `json:"code"`
	ErrCode     string `json:"err_code"`
	ErrMsg      string `json:"err_msg"`
}

func (e *ErrorResponse) Error() string {
	code, msg := e.Code, e.Description
	if code == "" {
		code = e.ErrCode
	}
	if msg == "" {
		msg = e.ErrMsg
	}
	if code == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", code, msg)
}
