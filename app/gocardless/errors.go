package gocardless

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	ErrorTypeInvalidState = "invalid_state"

	ReasonIdempotentCreationConflict   = "idempotent_creation_conflict"
	ReasonRedirectFlowAlreadyCompleted = "redirect_flow_already_completed"
)

var ErrInvalidSignature = errors.New("gocardless: invalid webhook signature")

type ErrorDetail struct {
	Reason         string            `json:"reason"`
	Message        string            `json:"message"`
	Field          string            `json:"field,omitempty"`
	RequestPointer string            `json:"request_pointer,omitempty"`
	Links          map[string]string `json:"links,omitempty"`
}

// APIError is returned for every response with a status code >= 400.
type APIError struct {
	StatusCode       int           `json:"-"`
	Type             string        `json:"type"`
	Code             int           `json:"code"`
	Message          string        `json:"message"`
	DocumentationURL string        `json:"documentation_url,omitempty"`
	RequestID        string        `json:"request_id,omitempty"`
	Errors           []ErrorDetail `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gocardless api error: status=%d", e.StatusCode)
	if e.Type != "" {
		fmt.Fprintf(&b, " type=%s", e.Type)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " message=%q", e.Message)
	}
	for _, detail := range e.Errors {
		if detail.Reason != "" {
			fmt.Fprintf(&b, " reason=%s", detail.Reason)
		}
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " request_id=%s", e.RequestID)
	}
	return b.String()
}

func (e *APIError) HasReason(reason string) bool {
	for _, detail := range e.Errors {
		if detail.Reason == reason {
			return true
		}
	}
	return false
}

// ConflictingResourceID returns the id of the resource that already exists when
// the error is an idempotent creation conflict.
func (e *APIError) ConflictingResourceID() (string, bool) {
	if e.Type != ErrorTypeInvalidState {
		return "", false
	}
	for _, detail := range e.Errors {
		if detail.Reason != ReasonIdempotentCreationConflict {
			continue
		}
		if id := strings.TrimSpace(detail.Links["conflicting_resource_id"]); id != "" {
			return id, true
		}
	}
	return "", false
}

// TransportError wraps network failures and timeouts. Callers may retry them.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gocardless request failed: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Temporary() bool {
	return true
}

func ConflictingResourceID(err error) (string, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	return apiErr.ConflictingResourceID()
}

func IsRetryable(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

func hasReason(err error, reason string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.HasReason(reason)
}

func parseAPIError(statusCode int, body []byte) *APIError {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == nil {
		return &APIError{
			StatusCode: statusCode,
			Message:    truncate(strings.TrimSpace(string(body)), 512),
		}
	}
	envelope.Error.StatusCode = statusCode
	return envelope.Error
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
