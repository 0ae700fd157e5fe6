package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/sashabaranov/go-openai"
)

// Cause classifies why a model call failed.
type Cause string

const (
	// CauseTimeout covers deadline expiry and transport timeouts.
	CauseTimeout Cause = "timeout"
	// CauseStatus covers non-2xx responses from the model endpoint.
	CauseStatus Cause = "status"
	// CauseCredentials covers authentication failures (401/403).
	CauseCredentials Cause = "credentials"
	// CauseOther covers everything else, including transport failures.
	CauseOther Cause = "other"
)

// ModelError is the definitive failure of a model invocation. The original
// error is preserved so retry exhaustion surfaces the real cause.
type ModelError struct {
	Cause  Cause
	Status int
	Err    error
}

func (e *ModelError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("model call failed (%s, HTTP %d): %v", e.Cause, e.Status, e.Err)
	}
	return fmt.Sprintf("model call failed (%s): %v", e.Cause, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// Transient reports whether err is worth retrying: timeouts, rate limits,
// server-side errors, and transport failures are; credential and client
// errors are not.
func Transient(err error) bool {
	var me *ModelError
	if !errors.As(err, &me) {
		return false
	}
	switch me.Cause {
	case CauseTimeout, CauseOther:
		return true
	case CauseStatus:
		return me.Status == 429 || me.Status >= 500
	default:
		return false
	}
}

// classify wraps an error from the OpenAI-compatible client into a ModelError.
func classify(err error) *ModelError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fromStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fromStatus(reqErr.HTTPStatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ModelError{Cause: CauseTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ModelError{Cause: CauseTimeout, Err: err}
	}
	return &ModelError{Cause: CauseOther, Err: err}
}

func fromStatus(status int, err error) *ModelError {
	if status == 401 || status == 403 {
		return &ModelError{Cause: CauseCredentials, Status: status, Err: err}
	}
	return &ModelError{Cause: CauseStatus, Status: status, Err: err}
}
