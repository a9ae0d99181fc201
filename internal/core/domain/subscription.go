package domain

// SubscriptionEvent is published when the backend answers 402 and the
// application shell should present an upgrade prompt.
type SubscriptionEvent struct {
	Error                string         `json:"error"`
	SubscriptionRequired bool           `json:"subscription_required"`
	AccessDenied         bool           `json:"access_denied"`
	TrialExpired         bool           `json:"trial_expired"`
	OriginalData         map[string]any `json:"originalData,omitempty"`
}

// NewSubscriptionEvent builds the event from a decoded 402 body. A nil body
// still yields a usable event.
func NewSubscriptionEvent(body map[string]any) SubscriptionEvent {
	ev := SubscriptionEvent{
		Error:                "Subscription required to continue",
		SubscriptionRequired: true,
		AccessDenied:         true,
		OriginalData:         body,
	}
	if msg, ok := body["error"].(string); ok && msg != "" {
		ev.Error = msg
	}
	if expired, ok := body["trial_expired"].(bool); ok {
		ev.TrialExpired = expired
	}
	return ev
}
