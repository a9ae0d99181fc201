// Package fetch is the authenticated, retrying request layer: it classifies
// failures, retries transient ones with backoff, and turns 401/402 and other
// non-2xx responses into *RequestError values.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/intake/internal/core/domain"
	"github.com/vietddude/intake/internal/credential"
	"github.com/vietddude/intake/internal/infra/transport"
	"github.com/vietddude/intake/internal/metrics"
)

// Connectivity reports whether the backend is believed reachable.
type Connectivity interface {
	IsOnline() bool
}

// DefaultOTPPaths are the endpoints whose 401 never clears the session.
var DefaultOTPPaths = []string{"/verify-otp", "/verify-backup-code"}

// Executor issues requests with header injection, per-attempt timeouts and
// bounded retries.
type Executor struct {
	baseURL  string
	cfg      RetryConfig
	doer     transport.Doer
	conn     Connectivity
	creds    *credential.Store
	guard    *SessionGuard
	otpPaths []string

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithOTPPaths overrides the OTP endpoint list.
func WithOTPPaths(paths ...string) ExecutorOption {
	return func(e *Executor) { e.otpPaths = paths }
}

// WithSleep replaces the inter-retry wait.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) { e.sleep = fn }
}

// WithJitter replaces the jitter source, which must return values in [0,1).
func WithJitter(fn func() float64) ExecutorOption {
	return func(e *Executor) { e.jitter = fn }
}

// NewExecutor creates an executor. conn may be nil, in which case the
// executor assumes it is online.
func NewExecutor(
	baseURL string,
	cfg RetryConfig,
	doer transport.Doer,
	conn Connectivity,
	creds *credential.Store,
	guard *SessionGuard,
	opts ...ExecutorOption,
) *Executor {
	e := &Executor{
		baseURL:  strings.TrimRight(baseURL, "/"),
		cfg:      cfg,
		doer:     doer,
		conn:     conn,
		creds:    creds,
		guard:    guard,
		otpPaths: DefaultOTPPaths,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the retry configuration.
func (e *Executor) Config() RetryConfig {
	return e.cfg
}

// ResolveURL returns the absolute URL for path.
func (e *Executor) ResolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return e.baseURL + path
}

// Execute runs req. 2xx and 4xx responses other than 401 are returned as-is;
// everything else comes back as a *RequestError.
func (e *Executor) Execute(ctx context.Context, req *Request) (*Response, error) {
	url := e.ResolveURL(req.Path)
	header := e.headers(ctx, req)
	timeout := e.cfg.timeoutFor(req.Upload)
	log := slog.With("method", req.Method, "url", url, "request_id", header.Get(domain.HeaderRequestID))

	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if e.conn != nil && !e.conn.IsOnline() {
			return nil, failure(ErrOffline, nil, attempt)
		}

		resp, err := e.do(ctx, req, url, header, timeout)

		var reqErr *RequestError
		switch {
		case err != nil:
			reqErr = failure(err, nil, attempt+1)
		case resp.StatusCode == http.StatusUnauthorized:
			reqErr = e.unauthorized(ctx, req, resp)
			reqErr.Attempts = attempt + 1
			return nil, reqErr
		case resp.StatusCode < 500:
			return resp, nil
		default:
			reqErr = Propagate(resp)
			reqErr.Attempts = attempt + 1
		}

		if !reqErr.Retryable {
			return nil, reqErr
		}
		if attempt == e.cfg.MaxRetries {
			log.Warn("Request failed after retries", "attempts", attempt+1, "kind", reqErr.Kind)
			return nil, reqErr
		}

		delay := e.cfg.retryDelay(attempt, e.jitterFunc())
		metrics.RetriesTotal.WithLabelValues(string(reqErr.Kind)).Inc()
		log.Debug("Retrying request", "attempt", attempt+1, "kind", reqErr.Kind, "delay", delay)

		if err := e.sleep(ctx, delay); err != nil {
			return nil, failure(err, nil, attempt+1)
		}
	}

	// MaxRetries < 0 leaves no attempts at all.
	return nil, &RequestError{Kind: KindUnknown, Message: "no attempts configured", UserMessage: msgUnknown}
}

// do performs a single attempt under its own timeout and reads the body.
func (e *Executor) do(
	ctx context.Context,
	req *Request,
	url string,
	header http.Header,
	timeout time.Duration,
) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header = header.Clone()

	metrics.AttemptsTotal.WithLabelValues(req.Method).Inc()
	start := time.Now()
	httpResp, err := e.doer.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	metrics.RequestLatency.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// headers builds the outgoing header set. Caller-supplied headers win over
// injected ones, except the multipart content type which carries the
// boundary.
func (e *Executor) headers(ctx context.Context, req *Request) http.Header {
	h := make(http.Header)
	if !req.Upload {
		h.Set("Content-Type", "application/json")
	}
	if e.creds != nil {
		e.creds.SetAuthHeaders(ctx, h)
	}
	h.Set(domain.HeaderRequestID, uuid.NewString())

	for k, v := range req.Header {
		h[k] = slices.Clone(v)
	}
	if req.ContentType != "" {
		h.Set("Content-Type", req.ContentType)
	} else if req.Upload {
		h.Del("Content-Type")
	}
	return h
}

func (e *Executor) unauthorized(ctx context.Context, req *Request, resp *Response) *RequestError {
	body := resp.Map()
	reqErr := &RequestError{
		Kind:        KindAuth,
		Status:      resp.StatusCode,
		Message:     authenticationFailure,
		UserMessage: msgAuth,
		Body:        body,
		Response:    resp,
	}

	if e.isOTP(req.Path) {
		return reqErr
	}
	if e.guard != nil {
		if e.guard.HandleExpiration(ctx, body) {
			reqErr.Message = sessionExpiredMarker
			reqErr.UserMessage = sessionExpiredNotice
			reqErr.SessionExpired = true
			return reqErr
		}
		e.guard.HandleUnauthorized(ctx)
	}
	return reqErr
}

func (e *Executor) isOTP(path string) bool {
	for _, p := range e.otpPaths {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

func (e *Executor) jitterFunc() func() float64 {
	if e.jitter != nil {
		return e.jitter
	}
	return randFloat
}

// failure wraps a transport-level error into a RequestError.
func failure(err error, resp *Response, attempts int) *RequestError {
	c := Classify(err, resp)
	return &RequestError{
		Kind:        c.Kind,
		Message:     err.Error(),
		UserMessage: c.UserMessage,
		Retryable:   c.Retryable,
		Attempts:    attempts,
		Response:    resp,
		Err:         err,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
