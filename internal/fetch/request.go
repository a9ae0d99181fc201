package fetch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// Request is one logical API call. Path is either absolute or relative to
// the executor's base URL.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte

	// ContentType is set for multipart bodies so the boundary travels with
	// the request. JSON requests leave it empty.
	ContentType string

	// Upload selects the long timeout class.
	Upload bool
}

// File is one part of a multipart upload.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// NewRequest creates a request without a body.
func NewRequest(method, path string) *Request {
	return &Request{Method: method, Path: path, Header: make(http.Header)}
}

// NewJSONRequest creates a request with v encoded as its JSON body. A nil v
// sends no body.
func NewJSONRequest(method, path string, v any) (*Request, error) {
	req := NewRequest(method, path)
	if v == nil {
		return req, nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req.Body = body
	return req, nil
}

// NewMultipartRequest creates a POST upload with the given form fields and
// files.
func NewMultipartRequest(path string, fields map[string]string, files ...File) (*Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", name, err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create part %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("write part %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req := NewRequest(http.MethodPost, path)
	req.Body = buf.Bytes()
	req.ContentType = w.FormDataContentType()
	req.Upload = true
	return req, nil
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body (status %d)", r.StatusCode)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Map decodes the body as a JSON object. It returns nil when the body is
// empty or not an object.
func (r *Response) Map() map[string]any {
	if r == nil || len(r.Body) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(r.Body, &m); err != nil {
		return nil
	}
	return m
}
