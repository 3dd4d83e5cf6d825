package server

import "errors"

var (
	// ErrMalformedRequestLine is returned when the request line lacks a
	// method or a path token.
	ErrMalformedRequestLine = errors.New("malformed request line")
	// ErrInvalidMethod is returned when the method token is not a supported
	// method name.
	ErrInvalidMethod = errors.New("invalid method")

	// ErrBind wraps any failure to bind the listening socket.
	ErrBind = errors.New("bind failed")
	// ErrServerClosed is returned by Serve and ListenAndServe after Shutdown
	// or Close.
	ErrServerClosed = errors.New("server closed")

	// ErrNilResponse is reported when a handler returns no response.
	ErrNilResponse = errors.New("handler returned nil response")
)
