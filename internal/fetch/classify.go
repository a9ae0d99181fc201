package fetch

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
)

// Kind is the closed set of failure categories.
type Kind string

const (
	KindNetwork              Kind = "network"
	KindTimeout              Kind = "timeout"
	KindAuth                 Kind = "auth"
	KindSubscriptionRequired Kind = "subscription_required"
	KindFileTooLarge         Kind = "file_too_large"
	KindServer               Kind = "server"
	KindClient               Kind = "client"
	KindUnknown              Kind = "unknown"
)

// Classification is the verdict of Classify.
type Classification struct {
	Kind           Kind
	Retryable      bool
	UserMessage    string
	SessionExpired bool
}

const (
	msgNetwork      = "Connection failed. Please check your internet connection."
	msgTimeout      = "Request timed out. Please try again."
	msgAuth         = "Authentication failed. Please login again."
	msgTooLarge     = "Recording file is too large. Please try with a shorter recording."
	msgServer       = "Server temporarily unavailable. Please try again in a moment."
	msgClient       = "Invalid request. Please check your input and try again."
	msgUnknown      = "An unexpected error occurred"
	msgSubscription = "Please upgrade your subscription to continue"
)

// Classify maps a transport error and/or a response to a Classification.
// Rules apply in order: network, timeout, 401, 413, 5xx, 4xx, unknown.
func Classify(err error, resp *Response) Classification {
	switch {
	case isNetwork(err):
		return Classification{Kind: KindNetwork, Retryable: true, UserMessage: msgNetwork}
	case isTimeout(err):
		return Classification{Kind: KindTimeout, Retryable: true, UserMessage: msgTimeout}
	}

	if resp != nil {
		switch status := resp.StatusCode; {
		case status == http.StatusUnauthorized:
			return Classification{Kind: KindAuth, UserMessage: msgAuth, SessionExpired: true}
		case status == http.StatusRequestEntityTooLarge:
			return Classification{Kind: KindFileTooLarge, UserMessage: msgTooLarge}
		case status >= 500:
			return Classification{Kind: KindServer, Retryable: true, UserMessage: msgServer}
		case status >= 400:
			return Classification{Kind: KindClient, UserMessage: msgClient}
		}
	}

	msg := msgUnknown
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Classification{Kind: KindUnknown, UserMessage: msg}
}

// isNetwork reports a failure to reach the server at all. Timeouts are
// excluded so they classify as KindTimeout.
func isNetwork(err error) bool {
	if err == nil || isTimeout(err) {
		return false
	}
	if errors.Is(err, ErrOffline) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	var urlErr *url.Error
	return errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.As(err, &urlErr)
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
