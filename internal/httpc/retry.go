package httpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// StatusError is a non-success answer from a collaborator API.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports HTTP 429.
func (e *StatusError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsUnauthorized reports HTTP 401.
func (e *StatusError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsServerError reports HTTP 5xx.
func (e *StatusError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable reports whether the same request may succeed later.
func (e *StatusError) IsRetryable() bool {
	return e.IsRateLimited() || e.IsServerError()
}

// ReadError drains resp and parses an OpenAI-style
// {"error": {"message", "code"}} body, falling back to the raw text.
func ReadError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	se := &StatusError{StatusCode: resp.StatusCode, Message: string(body)}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		se.Message = parsed.Error.Message
		se.Code = parsed.Error.Code
	}
	return se
}

// Retry resends idempotent collaborator requests with linear backoff.
type Retry struct {
	Max    int
	Delay  time.Duration
	Logger *slog.Logger
}

// Do sends req through client. Transport errors, 429 and 5xx answers are
// retried; body is replayed on every attempt. The final failure is either
// the transport error, ctx.Err(), or a *StatusError.
func (r Retry) Do(ctx context.Context, client *http.Client, req *http.Request, body []byte) (*http.Response, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 0; attempt <= r.Max; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.Delay * time.Duration(attempt)):
			}
		}
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			logger.Warn("request failed, retrying", "attempt", attempt+1, "error", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = ReadError(resp)
			resp.Body.Close()
			logger.Warn("retrying request", "attempt", attempt+1, "status", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}
