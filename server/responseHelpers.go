package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

// Text returns a 200 text/plain response.
func Text(body string) *Response {
	return withType(StatusOK, "text/plain; charset=utf-8", []byte(body))
}

// HTML returns a 200 text/html response.
func HTML(body string) *Response {
	return withType(StatusOK, "text/html", []byte(body))
}

// JSON encodes v and returns a 200 application/json response.
func JSON(v any) (*Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json body: %w", err)
	}
	return withType(StatusOK, "application/json", b), nil
}

// File reads name into a 200 response. An empty mimeType is sniffed from the
// file contents.
func File(name, mimeType string) (*Response, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read response file: %w", err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(b)
	}
	return withType(StatusOK, mimeType, b), nil
}

// WithStatus replaces the response status and returns r.
func (r *Response) WithStatus(status HttpStatus) *Response {
	r.Status = status
	return r
}

func withType(status HttpStatus, contentType string, body []byte) *Response {
	r := NewResponse(status, body)
	r.Header.Set("Content-Type", contentType)
	return r
}

func errorResponse(status HttpStatus) *Response {
	return withType(status, "text/html", []byte("<h1>"+status.Message+"</h1>"))
}
