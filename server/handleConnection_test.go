package server

import (
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.MaxRequestSize = 1024
	return cfg
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Logger = zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	return s
}

// exchange runs handleConnection over an in-memory pipe, sends raw and
// returns everything written back before the server closed the connection.
func exchange(t *testing.T, s *Server, raw string) string {
	t.Helper()
	client, srv := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		s.handleConnection(srv)
		close(done)
	}()
	go client.Write([]byte(raw))

	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	out, err := io.ReadAll(client)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	<-done
	return string(out)
}

func TestHandleConnectionServesRoute(t *testing.T) {
	s := newTestServer(t, testConfig())
	var calls atomic.Int32
	s.Get("/", func(req *Request) *Response {
		calls.Add(1)
		return HTML("<h1>hi</h1>")
	})

	got := exchange(t, s, "GET / HTTP/1.1\r\n\r\n")
	want := "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: 11\r\n\r\n<h1>hi</h1>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("handler called %d times, want 1", n)
	}
}

func TestHandleConnectionSkipsLeadingEmptyLines(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.Get("/", body("root"))

	got := exchange(t, s, "\r\n\r\nGET / HTTP/1.1\r\n\r\n")
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") || !strings.HasSuffix(got, "root") {
		t.Errorf("got %q, want 200 root", got)
	}
}

func TestHandleConnectionPassesRequest(t *testing.T) {
	s := newTestServer(t, testConfig())
	var seen *Request
	s.Get("/who", func(req *Request) *Response {
		seen = req
		return Text("ok")
	})

	exchange(t, s, "GET /who HTTP/1.0\r\nHost: example\r\n\r\n")
	if seen == nil {
		t.Fatal("handler not called")
	}
	if seen.Method != MethodGet || seen.Path != "/who" || seen.Proto != "HTTP/1.0" {
		t.Errorf("request = %+v", seen)
	}
	if seen.RemoteAddr == "" {
		t.Error("remote addr not set")
	}
	if seen.Context() == nil {
		t.Error("nil context")
	}
}

func TestHandleConnectionErrors(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantPrefix string
	}{
		{"not found", "GET /missing HTTP/1.1\r\n\r\n", "HTTP/1.1 404 Not Found\r\n"},
		{"supported method without route", "POST / HTTP/1.1\r\n\r\n", "HTTP/1.1 404 Not Found\r\n"},
		{"unsupported method", "BREW / HTTP/1.1\r\n\r\n", "HTTP/1.1 500 Internal Server Error\r\n"},
		{"missing path", "GET\r\n\r\n", "HTTP/1.1 500 Internal Server Error\r\n"},
		{"garbage", "\r\n\r\n", "HTTP/1.1 500 Internal Server Error\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig())
			var calls atomic.Int32
			s.Get("/", func(*Request) *Response {
				calls.Add(1)
				return Text("root")
			})

			got := exchange(t, s, tt.raw)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("got %q, want prefix %q", got, tt.wantPrefix)
			}
			if _, rest, ok := strings.Cut(got, "\r\n\r\n"); !ok || rest == "" {
				t.Errorf("error response has no body: %q", got)
			}
			if n := calls.Load(); n != 0 {
				t.Errorf("handler called %d times", n)
			}
		})
	}
}

func TestHandleConnectionOversized(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestSize = 16
	s := newTestServer(t, cfg)
	var calls atomic.Int32
	s.Get("/", func(*Request) *Response {
		calls.Add(1)
		return Text("root")
	})

	got := exchange(t, s, strings.Repeat("x", cfg.MaxRequestSize+1))
	if !strings.HasPrefix(got, "HTTP/1.1 413 Content Too Large\r\n") {
		t.Errorf("got %q, want 413", got)
	}

	// A valid request line does not rescue an oversized request.
	got = exchange(t, s, "GET / HTTP/1.1\r\n"+strings.Repeat("h", cfg.MaxRequestSize))
	if !strings.HasPrefix(got, "HTTP/1.1 413 ") {
		t.Errorf("got %q, want 413", got)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("handler called %d times", n)
	}

	// Exactly at the limit is fine.
	got = exchange(t, s, "GET / HTTP/1.1\r\n"[:cfg.MaxRequestSize])
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("got %q, want 200", got)
	}
}

func TestHandleConnectionHandlerFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler Handler
	}{
		{"panic", func(*Request) *Response { panic("boom") }},
		{"nil response", func(*Request) *Response { return nil }},
		{"zero status", func(*Request) *Response { return &Response{Body: []byte("x")} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, testConfig())
			s.Get("/bad", tt.handler)
			s.Get("/good", body("fine"))

			got := exchange(t, s, "GET /bad HTTP/1.1\r\n\r\n")
			if !strings.HasPrefix(got, "HTTP/1.1 500 ") {
				t.Errorf("got %q, want 500", got)
			}
			got = exchange(t, s, "GET /good HTTP/1.1\r\n\r\n")
			if !strings.HasSuffix(got, "\r\n\r\nfine") {
				t.Errorf("follow-up request got %q", got)
			}
		})
	}
}

func TestHandleConnectionClientClosesWithoutData(t *testing.T) {
	s := newTestServer(t, testConfig())
	client, srv := net.Pipe()

	done := make(chan struct{})
	go func() {
		s.handleConnection(srv)
		close(done)
	}()
	client.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not return after client closed")
	}
}

func TestHandleConnectionReadTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.ReadTimeout = 50 * time.Millisecond
	s := newTestServer(t, cfg)
	client, srv := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		s.handleConnection(srv)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("idle connection was not dropped")
	}
}
