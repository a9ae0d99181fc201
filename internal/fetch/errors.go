package fetch

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors matched by RequestError.Is.
var (
	ErrOffline              = errors.New("device is offline")
	ErrTimeout              = errors.New("request timed out")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrSessionExpired       = errors.New("session expired due to inactivity")
	ErrSubscriptionRequired = errors.New("subscription required")
)

// RequestError is the single failure type returned by the executor and the
// client. Kind is a closed set; Body holds the decoded backend payload when
// the failure came with a JSON response.
type RequestError struct {
	Kind           Kind
	Status         int
	Message        string
	UserMessage    string
	Retryable      bool
	SessionExpired bool
	Attempts       int

	// Body is every top-level field of the backend's JSON error body.
	Body map[string]any

	// Response is the raw response, nil for transport failures.
	Response *Response

	// Subscription is set for KindSubscriptionRequired.
	Subscription *SubscriptionDetails

	Err error
}

// SubscriptionDetails is the payload of a 402 failure.
type SubscriptionDetails struct {
	SubscriptionRequired bool
	AccessDenied         bool
	TrialExpired         bool
	OriginalData         map[string]any
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (%s, status %d)", msg, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s (%s)", msg, e.Kind)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is lets callers test a RequestError against the package sentinels.
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrSessionExpired:
		return e.SessionExpired
	case ErrSubscriptionRequired:
		return e.Kind == KindSubscriptionRequired
	case ErrAuthenticationFailed:
		return e.Kind == KindAuth && !e.SessionExpired
	case ErrTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

// Field returns a top-level field of the backend body.
func (e *RequestError) Field(key string) (any, bool) {
	if e.Body == nil {
		return nil, false
	}
	v, ok := e.Body[key]
	return v, ok
}

// Decode re-decodes the backend body into v, for callers that want typed
// access to domain-specific fields such as existing_patient.
func (e *RequestError) Decode(v any) error {
	if e.Response != nil && len(e.Response.Body) > 0 {
		return json.Unmarshal(e.Response.Body, v)
	}
	if e.Body == nil {
		return errors.New("error has no body")
	}
	raw, err := json.Marshal(e.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// AsRequestError extracts a *RequestError from err.
func AsRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}

// UserMessage returns the display message carried by err, falling back to
// err.Error() for foreign errors.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if reqErr, ok := AsRequestError(err); ok && reqErr.UserMessage != "" {
		return reqErr.UserMessage
	}
	return err.Error()
}

// ShouldOfferDownload reports whether the UI should offer the user a local
// copy of what they were submitting: the retry budget is spent, or the
// failure was transient.
func ShouldOfferDownload(err error, attempts int, cfg RetryConfig) bool {
	if attempts >= cfg.MaxRetries {
		return true
	}
	kind := Classify(err, nil).Kind
	if reqErr, ok := AsRequestError(err); ok {
		kind = reqErr.Kind
	}
	switch kind {
	case KindNetwork, KindTimeout, KindServer:
		return true
	}
	return false
}
