package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
)

func TestClassify(t *testing.T) {
	dialErr := &url.Error{Op: "Post", URL: "http://x", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}
	deadlineErr := &url.Error{Op: "Get", URL: "http://x", Err: context.DeadlineExceeded}

	tests := []struct {
		name      string
		err       error
		status    int
		kind      Kind
		retryable bool
		message   string
	}{
		{"offline", ErrOffline, 0, KindNetwork, true, msgNetwork},
		{"dial failure", dialErr, 0, KindNetwork, true, msgNetwork},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "api"}, 0, KindNetwork, true, msgNetwork},
		{"deadline", context.DeadlineExceeded, 0, KindTimeout, true, msgTimeout},
		{"client timeout", deadlineErr, 0, KindTimeout, true, msgTimeout},
		{"401", nil, 401, KindAuth, false, msgAuth},
		{"413", nil, 413, KindFileTooLarge, false, msgTooLarge},
		{"500", nil, 500, KindServer, true, msgServer},
		{"503", nil, 503, KindServer, true, msgServer},
		{"400", nil, 400, KindClient, false, msgClient},
		{"402", nil, 402, KindClient, false, msgClient},
		{"404", nil, 404, KindClient, false, msgClient},
		{"raw error", errors.New("boom"), 0, KindUnknown, false, "boom"},
		{"canceled", fmt.Errorf("wrapped: %w", context.Canceled), 0, KindUnknown, false, "wrapped: context canceled"},
		{"nothing", nil, 0, KindUnknown, false, msgUnknown},
		{"2xx", nil, 200, KindUnknown, false, msgUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *Response
			if tt.status != 0 {
				resp = &Response{StatusCode: tt.status}
			}
			c := Classify(tt.err, resp)
			if c.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", c.Kind, tt.kind)
			}
			if c.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", c.Retryable, tt.retryable)
			}
			if c.UserMessage != tt.message {
				t.Errorf("message = %q, want %q", c.UserMessage, tt.message)
			}
		})
	}
}

func TestClassify_AuthFlagsSessionExpired(t *testing.T) {
	c := Classify(nil, &Response{StatusCode: 401})
	if !c.SessionExpired {
		t.Error("expected 401 to be flagged for session inspection")
	}
}

func TestClassify_TransportErrorWinsOverStatus(t *testing.T) {
	c := Classify(ErrOffline, &Response{StatusCode: 413})
	if c.Kind != KindNetwork {
		t.Errorf("kind = %s, want network", c.Kind)
	}
}
