package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// State is the lifecycle stage of a Server.
type State int

const (
	StateCreated State = iota
	StateBound
	StateListening
	StateAccepting
	StateShuttingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateBound:
		return "bound"
	case StateListening:
		return "listening"
	case StateAccepting:
		return "accepting"
	case StateShuttingDown:
		return "shutting down"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Server struct {
	// Logger receives lifecycle and per-connection events. It may be
	// replaced before Listen.
	Logger zerolog.Logger

	cfg    Config
	routes routeTable
	// sem bounds concurrent handlers; nil when MaxConnections is zero.
	sem *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	listener net.Listener
	conns    map[net.Conn]struct{}
	inflight sync.WaitGroup

	served    chan struct{}
	serveErr  error
	serveOnce sync.Once
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		Logger: zerolog.New(os.Stderr).With().Timestamp().Logger(),
		cfg:    cfg,
		conns:  make(map[net.Conn]struct{}),
		served: make(chan struct{}),
	}
	if cfg.MaxConnections > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConnections))
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Listen binds the configured address. A bind failure wraps ErrBind.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCreated {
		return fmt.Errorf("listen: server is %s", s.state)
	}

	// net.Listen binds and listens in one call with the OS default backlog,
	// so StateBound is never observable from outside.
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBind, s.cfg.Addr, err)
	}
	s.listener = l
	s.state = StateListening
	s.Logger.Info().
		Str("addr", l.Addr().String()).
		Int("max_connections", s.cfg.MaxConnections).
		Int("max_request_size", s.cfg.MaxRequestSize).
		Msg("listening")
	return nil
}

// Serve runs the accept loop until Shutdown or Close, when it returns
// ErrServerClosed, or until accept fails, which is returned wrapped.
func (s *Server) Serve() error {
	s.mu.Lock()
	switch s.state {
	case StateListening:
	case StateShuttingDown, StateClosed:
		s.mu.Unlock()
		return s.finish(ErrServerClosed)
	default:
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("serve: server is %s", state)
	}
	s.state = StateAccepting
	l := s.listener
	s.mu.Unlock()

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.closing() && errors.Is(err, net.ErrClosed) {
				return s.finish(ErrServerClosed)
			}
			s.Logger.Error().Err(err).Msg("accept failed")
			s.mu.Lock()
			s.state = StateClosed
			s.mu.Unlock()
			l.Close()
			return s.finish(fmt.Errorf("accept: %w", err))
		}
		s.dispatch(conn)
	}
}

// ListenAndServe binds and blocks in Serve.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Start binds and runs Serve on its own goroutine. Bind errors are returned
// directly; the result of Serve is available from Wait.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	go s.Serve()
	return nil
}

// Wait blocks until the accept loop has ended, however it was started, and
// returns its result. Wait blocks forever on a server that never serves.
func (s *Server) Wait() error {
	<-s.served
	return s.serveErr
}

// finish records the first result of the accept loop and releases Wait.
func (s *Server) finish(err error) error {
	s.serveOnce.Do(func() {
		s.serveErr = err
		close(s.served)
	})
	return err
}

// Run serves until ctx is done, then shuts down, giving in-flight
// connections Config.ShutdownTimeout to finish.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.Serve(); !errors.Is(err, ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.served:
			// Shutdown or Close was called directly; that caller owns the drain.
			return nil
		}
		sctx := context.Background()
		if s.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(sctx, s.cfg.ShutdownTimeout)
			defer cancel()
		}
		return s.Shutdown(sctx)
	})
	return g.Wait()
}

// Shutdown stops accepting, then waits for in-flight and queued connections
// to finish. If ctx expires first the remaining connections are closed and
// ctx's error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateShuttingDown
	l := s.listener
	s.mu.Unlock()

	s.Logger.Info().Msg("shutting down")
	if l != nil {
		if err := l.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.Logger.Warn().Err(err).Msg("close listener")
		}
	}

	drained := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = ctx.Err()
		s.Logger.Warn().Err(err).Msg("shutdown deadline reached, closing connections")
		s.closeConns()
	}

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	s.cancel()
	s.Logger.Info().Msg("closed")
	return err
}

// Close stops the server immediately, closing the listener and every
// tracked connection.
func (s *Server) Close() error {
	s.mu.Lock()
	s.state = StateClosed
	l := s.listener
	s.mu.Unlock()

	var err error
	if l != nil {
		if err = l.Close(); errors.Is(err, net.ErrClosed) {
			err = nil
		}
	}
	s.closeConns()
	s.cancel()
	return err
}

func (s *Server) closing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateShuttingDown || s.state == StateClosed
}

// dispatch hands conn to its own goroutine. With a connection limit the
// goroutine first queues on the semaphore, so accept never waits on busy
// handlers.
func (s *Server) dispatch(conn net.Conn) {
	if !s.track(conn) {
		conn.Close()
		return
	}
	go func() {
		defer s.inflight.Done()
		defer s.untrack(conn)

		if s.sem != nil {
			if err := s.sem.Acquire(s.ctx, 1); err != nil {
				conn.Close()
				return
			}
			defer s.sem.Release(1)
		}
		s.handleConnection(conn)
	}()
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAccepting {
		return false
	}
	s.conns[conn] = struct{}{}
	s.inflight.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeConns() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}
