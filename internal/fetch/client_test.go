package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vietddude/intake/internal/core/domain"
	"github.com/vietddude/intake/internal/metrics"
)

func jsonServer(t *testing.T, calls *atomic.Int32, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_SubscriptionRequired(t *testing.T) {
	h := newHarness(t)
	var events []domain.SubscriptionEvent
	h.bus.Subscribe(func(ev domain.SubscriptionEvent) { events = append(events, ev) })
	counter := metrics.SessionEventsTotal.WithLabelValues("subscription_required")
	before := testutil.ToFloat64(counter)

	var calls atomic.Int32
	server := jsonServer(t, &calls, http.StatusPaymentRequired,
		`{"error":"Your trial has ended","subscription_required":true,"trial_expired":true}`)

	_, err := h.client(server.URL, testConfig()).Do(context.Background(), NewRequest(http.MethodPost, "/api/transcribe"))

	if !errors.Is(err, ErrSubscriptionRequired) {
		t.Fatalf("expected ErrSubscriptionRequired, got %v", err)
	}
	reqErr, _ := AsRequestError(err)
	if reqErr.Message != "Your trial has ended" {
		t.Errorf("message = %q", reqErr.Message)
	}
	if reqErr.UserMessage != "Please upgrade your subscription to continue" {
		t.Errorf("user message = %q", reqErr.UserMessage)
	}
	if reqErr.Subscription == nil || !reqErr.Subscription.TrialExpired || !reqErr.Subscription.AccessDenied {
		t.Errorf("subscription details = %+v", reqErr.Subscription)
	}
	if calls.Load() != 1 || len(h.sleeps) != 0 {
		t.Errorf("attempts = %d sleeps = %v", calls.Load(), h.sleeps)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if !events[0].SubscriptionRequired || events[0].Error != "Your trial has ended" {
		t.Errorf("event = %+v", events[0])
	}
	if events[0].OriginalData["trial_expired"] != true {
		t.Errorf("original data = %v", events[0].OriginalData)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("subscription_required events counted = %v, want 1", got)
	}
}

func TestClient_SubscriptionRequiredDefaultMessage(t *testing.T) {
	h := newHarness(t)
	var calls atomic.Int32
	server := jsonServer(t, &calls, http.StatusPaymentRequired, `not json`)

	_, err := h.client(server.URL, testConfig()).Do(context.Background(), NewRequest(http.MethodGet, "/api/x"))

	reqErr, ok := AsRequestError(err)
	if !ok || reqErr.Kind != KindSubscriptionRequired {
		t.Fatalf("expected subscription error, got %v", err)
	}
	if reqErr.Message != "Subscription required to continue" {
		t.Errorf("message = %q", reqErr.Message)
	}
}

func TestClient_DuplicatePatient(t *testing.T) {
	h := newHarness(t)
	var calls atomic.Int32
	server := jsonServer(t, &calls, http.StatusConflict,
		`{"error": "Duplicate patient", "existing_patient": {"id": 42}}`)

	_, err := h.client(server.URL, testConfig()).Do(context.Background(), NewRequest(http.MethodPost, "/api/patients"))

	reqErr, ok := AsRequestError(err)
	if !ok {
		t.Fatalf("expected *RequestError, got %v", err)
	}
	if reqErr.UserMessage != "Duplicate patient" {
		t.Errorf("user message = %q", reqErr.UserMessage)
	}
	if reqErr.Status != http.StatusConflict || reqErr.Kind != KindClient {
		t.Errorf("status %d kind %s", reqErr.Status, reqErr.Kind)
	}
	existing, ok := reqErr.Body["existing_patient"].(map[string]any)
	if !ok || existing["id"] != float64(42) {
		t.Errorf("existing_patient = %v", reqErr.Body["existing_patient"])
	}

	var typed struct {
		ExistingPatient struct {
			ID int `json:"id"`
		} `json:"existing_patient"`
	}
	if err := reqErr.Decode(&typed); err != nil || typed.ExistingPatient.ID != 42 {
		t.Errorf("Decode: %v, id = %d", err, typed.ExistingPatient.ID)
	}
	if calls.Load() != 1 {
		t.Errorf("attempts = %d", calls.Load())
	}
}

func TestClient_PropagatedMessages(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   Kind
		msg    string
		user   string
	}{
		{413, `{"error":"too big"}`, KindFileTooLarge, "too big", "File is too large to upload. Please try with a smaller recording."},
		{403, `{"message":"nope"}`, KindClient, "nope", "Access denied. Please check your permissions."},
		{404, `{}`, KindClient, "Request failed with status 404", "The requested resource was not found."},
		{500, `{"msg":"db down"}`, KindServer, "db down", "Server is temporarily unavailable. Please try again in a few moments."},
		{422, `{"message":"Date of birth is required"}`, KindClient, "Date of birth is required", "Date of birth is required"},
		{418, ``, KindClient, "Request failed with status 418", "Request failed with status 418"},
		{400, `{"error":"first","message":"second"}`, KindClient, "first", "first"},
	}

	for _, tt := range tests {
		h := newHarness(t)
		cfg := testConfig()
		cfg.MaxRetries = 0
		var calls atomic.Int32
		server := jsonServer(t, &calls, tt.status, tt.body)

		_, err := h.client(server.URL, cfg).Do(context.Background(), NewRequest(http.MethodGet, "/api/x"))

		reqErr, ok := AsRequestError(err)
		if !ok {
			t.Fatalf("%d: expected *RequestError, got %v", tt.status, err)
		}
		if reqErr.Kind != tt.kind {
			t.Errorf("%d: kind = %s, want %s", tt.status, reqErr.Kind, tt.kind)
		}
		if reqErr.Message != tt.msg {
			t.Errorf("%d: message = %q, want %q", tt.status, reqErr.Message, tt.msg)
		}
		if reqErr.UserMessage != tt.user {
			t.Errorf("%d: user message = %q, want %q", tt.status, reqErr.UserMessage, tt.user)
		}
		if reqErr.Response == nil || reqErr.Response.StatusCode != tt.status {
			t.Errorf("%d: response not attached", tt.status)
		}
	}
}

func TestClient_SessionExpiredPassesThrough(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	var calls atomic.Int32
	server := jsonServer(t, &calls, http.StatusUnauthorized, `{"code":"SESSION_EXPIRED"}`)

	_, err := h.client(server.URL, testConfig()).Do(context.Background(), NewRequest(http.MethodGet, "/api/x"))

	reqErr, ok := AsRequestError(err)
	if !ok || !reqErr.SessionExpired {
		t.Fatalf("expected session expiry, got %v", err)
	}
	if reqErr.UserMessage != "Your session has expired due to inactivity. Please login again." {
		t.Errorf("user message = %q", reqErr.UserMessage)
	}
}

func TestClient_JSONHelpers(t *testing.T) {
	h := newHarness(t)
	var gotMethod, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		_, _ = io.WriteString(w, `{"id":9,"name":"Jane"}`)
	}))
	defer server.Close()

	c := h.client(server.URL, testConfig())
	var out struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	if err := c.GetJSON(context.Background(), "/api/patients/9", &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if gotMethod != http.MethodGet || out.ID != 9 || out.Name != "Jane" {
		t.Errorf("GET: method %s out %+v", gotMethod, out)
	}

	if err := c.PostJSON(context.Background(), "/api/patients", map[string]string{"name": "Jane"}, nil); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if gotMethod != http.MethodPost || gotBody != `{"name":"Jane"}` {
		t.Errorf("POST: method %s body %s", gotMethod, gotBody)
	}

	if err := c.PutJSON(context.Background(), "/api/patients/9", map[string]int{"age": 40}, &out); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("PUT: method %s", gotMethod)
	}

	if err := c.Delete(context.Background(), "/api/patients/9", nil); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("DELETE: method %s", gotMethod)
	}
}

func TestShouldOfferDownload(t *testing.T) {
	cfg := DefaultRetryConfig
	tests := []struct {
		name     string
		err      error
		attempts int
		want     bool
	}{
		{"budget spent", &RequestError{Kind: KindClient}, 3, true},
		{"network", &RequestError{Kind: KindNetwork}, 1, true},
		{"timeout", &RequestError{Kind: KindTimeout}, 0, true},
		{"server", &RequestError{Kind: KindServer}, 1, true},
		{"client", &RequestError{Kind: KindClient}, 1, false},
		{"auth", &RequestError{Kind: KindAuth}, 1, false},
		{"raw offline", ErrOffline, 0, true},
		{"raw unknown", errors.New("boom"), 0, false},
	}
	for _, tt := range tests {
		if got := ShouldOfferDownload(tt.err, tt.attempts, cfg); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(&RequestError{UserMessage: "shown"}); got != "shown" {
		t.Errorf("got %q", got)
	}
	if got := UserMessage(errors.New("plain")); got != "plain" {
		t.Errorf("got %q", got)
	}
	if got := UserMessage(nil); got != "" {
		t.Errorf("got %q", got)
	}
}
