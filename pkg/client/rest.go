package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// Response is a successful REST answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do performs one REST call against path. A non-2xx status is returned as
// *APIError or *UnknownAPIError.
func Do(ctx context.Context, opts Options, method, path string, query url.Values, body io.Reader, contentType string) (*Response, error) {
	endpoint, err := opts.RESTURL(path, query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = opts.Header()
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	logger := opts.Log()
	logger.Debug("rest request", zap.String("method", method), zap.String("url", endpoint))

	resp, err := opts.HTTP().Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseError(resp.StatusCode, data)
		logger.Warn("rest request failed", zap.String("url", endpoint), zap.Error(apiErr))
		return nil, apiErr
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// DoJSON marshals payload as the request body.
func DoJSON(ctx context.Context, opts Options, path string, query url.Values, payload any) (*Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	return Do(ctx, opts, http.MethodPost, path, query, bytes.NewReader(data), "application/json")
}

// DecodeJSON unmarshals a response body into T.
func DecodeJSON[T any](resp *Response) (*T, error) {
	var out T
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &out, nil
}
