package fetch

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vietddude/intake/internal/metrics"
)

// Client is the entry point for API calls: it runs the executor and turns
// every non-2xx response into a *RequestError.
type Client struct {
	exec  *Executor
	guard *SessionGuard
}

// NewClient creates a client over exec. guard handles 402 responses and may
// be nil.
func NewClient(exec *Executor, guard *SessionGuard) *Client {
	return &Client{exec: exec, guard: guard}
}

// Executor returns the underlying executor.
func (c *Client) Executor() *Executor {
	return c.exec
}

// Do executes req and returns the response only when it is 2xx.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.exec.Execute(ctx, req)
	if err != nil {
		return nil, c.fail(req, err)
	}
	if resp.OK() {
		metrics.RequestsTotal.WithLabelValues(req.Method, "success").Inc()
		return resp, nil
	}

	var reqErr *RequestError
	if resp.StatusCode == http.StatusPaymentRequired && c.guard != nil {
		reqErr = c.guard.HandleSubscription(resp.Map(), resp)
	} else {
		reqErr = Propagate(resp)
	}
	return nil, c.fail(req, reqErr)
}

func (c *Client) fail(req *Request, err error) error {
	kind := KindUnknown
	if reqErr, ok := AsRequestError(err); ok {
		kind = reqErr.Kind
	}
	metrics.RequestsTotal.WithLabelValues(req.Method, "error").Inc()
	metrics.ErrorsTotal.WithLabelValues(string(kind)).Inc()
	slog.Debug("Request failed", "method", req.Method, "path", req.Path, "kind", kind, "error", err)
	return err
}

// GetJSON issues a GET and decodes the response into out. out may be nil.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.send(ctx, NewRequest(http.MethodGet, path), out)
}

// PostJSON posts in as JSON and decodes the response into out. in and out
// may be nil.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, in, out)
}

// PutJSON is PostJSON with PUT.
func (c *Client) PutJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, in, out)
}

// Delete issues a DELETE and decodes the response into out. out may be nil.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.send(ctx, NewRequest(http.MethodDelete, path), out)
}

// Upload posts a multipart body under the upload timeout class.
func (c *Client) Upload(ctx context.Context, path string, fields map[string]string, files ...File) (*Response, error) {
	req, err := NewMultipartRequest(path, fields, files...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	req, err := NewJSONRequest(method, path, in)
	if err != nil {
		return err
	}
	return c.send(ctx, req, out)
}

func (c *Client) send(ctx context.Context, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	return resp.JSON(out)
}
