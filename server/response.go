package server

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

const proto = "HTTP/1.1"

type headerField struct {
	name  string
	value string
}

// Header is an insertion-ordered set of response header fields. Names are
// matched case-insensitively but written as given.
type Header struct {
	fields []headerField
}

// Add appends a field, keeping any existing fields with the same name.
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, headerField{name, value})
}

// Set replaces the first field named name in place, or appends it.
func (h *Header) Set(name, value string) {
	for i, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			h.fields[i].value = value
			h.del(name, i+1)
			return
		}
	}
	h.Add(name, value)
}

func (h *Header) Get(name string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			return f.value
		}
	}
	return ""
}

func (h *Header) Del(name string) {
	h.del(name, 0)
}

func (h *Header) del(name string, from int) {
	kept := h.fields[:from]
	for _, f := range h.fields[from:] {
		if !strings.EqualFold(f.name, name) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

func (h *Header) Len() int {
	return len(h.fields)
}

// Each calls fn for every field in insertion order.
func (h *Header) Each(fn func(name, value string)) {
	for _, f := range h.fields {
		fn(f.name, f.value)
	}
}

// Response is what a Handler returns. Body may be nil.
type Response struct {
	Status HttpStatus
	Header Header
	Body   []byte
}

// NewResponse returns a response with the given status and body and no
// headers.
func NewResponse(status HttpStatus, body []byte) *Response {
	return &Response{Status: status, Body: body}
}

// Bytes returns the serialized response.
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	r.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo serializes the response and writes it to w in a single Write.
// Content-Length is always computed from Body; a caller supplied
// Content-Length field is not written. Header values are written verbatim.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.Grow(64 + len(r.Body))

	buf.WriteString(proto)
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(r.Status.Code))
	buf.WriteByte(' ')
	buf.WriteString(r.Status.Message)
	buf.WriteString("\r\n")
	r.Header.Each(func(name, value string) {
		if strings.EqualFold(name, "Content-Length") {
			return
		}
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	})
	buf.WriteString("Content-Length: ")
	buf.WriteString(strconv.Itoa(len(r.Body)))
	buf.WriteString("\r\n\r\n")
	buf.Write(r.Body)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}
