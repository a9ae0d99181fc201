package fetch

import (
	"fmt"
	"net/http"
)

// Propagate builds the error for a non-2xx response that reached the caller.
// The backend body is kept whole on RequestError.Body.
func Propagate(resp *Response) *RequestError {
	body := resp.Map()
	msg := backendMessage(body, resp.StatusCode)
	c := Classify(nil, resp)

	return &RequestError{
		Kind:        c.Kind,
		Status:      resp.StatusCode,
		Message:     msg,
		UserMessage: statusMessage(resp.StatusCode, msg),
		Retryable:   c.Retryable,
		Body:        body,
		Response:    resp,
	}
}

// backendMessage picks the first of error, message and msg present in body.
func backendMessage(body map[string]any, status int) string {
	for _, key := range []string{"error", "message", "msg"} {
		if s, ok := body[key].(string); ok && s != "" {
			return s
		}
	}
	return fmt.Sprintf("Request failed with status %d", status)
}

func statusMessage(status int, msg string) string {
	switch {
	case status == http.StatusRequestEntityTooLarge:
		return "File is too large to upload. Please try with a smaller recording."
	case status >= 500:
		return "Server is temporarily unavailable. Please try again in a few moments."
	case status == http.StatusForbidden:
		return "Access denied. Please check your permissions."
	case status == http.StatusNotFound:
		return "The requested resource was not found."
	}
	// 409 and everything else keep the backend's wording.
	return msg
}
