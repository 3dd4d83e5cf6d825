package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Method is a request method name, compared case-sensitively.
type Method string

const (
	MethodGet     Method = http.MethodGet
	MethodHead    Method = http.MethodHead
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodConnect Method = http.MethodConnect
	MethodOptions Method = http.MethodOptions
	MethodTrace   Method = http.MethodTrace
)

func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodHead, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodConnect, MethodOptions, MethodTrace:
		return true
	}
	return false
}

// Request is the parsed request line of a single connection. Headers and body
// are not read.
type Request struct {
	Method Method
	Path   string
	// Proto is the version token, empty when the client sent none.
	Proto      string
	RemoteAddr string

	ctx context.Context
}

// Context returns the request's context. It is cancelled when the server is
// closed while the request is still being handled.
func (r *Request) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// ParseRequest builds a Request from the first line of raw. Empty lines
// before the request line are skipped, and everything after its terminator
// is ignored.
func ParseRequest(raw []byte) (*Request, error) {
	line := bytes.TrimLeft(raw, "\r\n")
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = bytes.TrimSuffix(line, []byte{'\r'})

	fields := strings.Fields(string(line))
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}

	req := &Request{
		Method: Method(fields[0]),
		Path:   fields[1],
	}
	if !req.Method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, fields[0])
	}
	if len(fields) > 2 {
		req.Proto = fields[2]
	}
	return req, nil
}
