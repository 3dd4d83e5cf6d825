package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	log := s.Logger.With().Str("remote", conn.RemoteAddr().String()).Logger()

	if s.cfg.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}

	// One read, one byte past the limit so an oversized request is visible.
	buf := make([]byte, s.cfg.MaxRequestSize+1)
	n, err := conn.Read(buf)
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			log.Debug().Err(err).Msg("read request")
		}
		return
	}
	buf = buf[:n]

	if n > s.cfg.MaxRequestSize {
		log.Warn().Int("limit", s.cfg.MaxRequestSize).Msg("request too large")
		s.writeResponse(conn, log, errorResponse(StatusContentTooLarge))
		return
	}

	req, err := ParseRequest(buf)
	if err != nil {
		log.Warn().Err(err).Msg("parse request")
		s.writeResponse(conn, log, errorResponse(StatusInternalServerError))
		return
	}
	req.RemoteAddr = conn.RemoteAddr().String()
	req.ctx = s.ctx
	log = log.With().Str("method", string(req.Method)).Str("path", req.Path).Logger()

	h, ok := s.routes.route(req)
	if !ok {
		log.Debug().Msg("no route")
		s.writeResponse(conn, log, errorResponse(StatusNotFound))
		return
	}

	res, err := invoke(h, req, log)
	if err != nil {
		log.Error().Err(err).Msg("handler failed")
		s.writeResponse(conn, log, errorResponse(StatusInternalServerError))
		return
	}
	s.writeResponse(conn, log, res)
}

// invoke calls h, turning a panic or an unusable response into an error.
func invoke(h Handler, req *Request, log zerolog.Logger) (res *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Bytes("stack", debug.Stack()).Msg("handler panic")
			res, err = nil, fmt.Errorf("handler panic: %v", r)
		}
	}()

	res = h(req)
	if res == nil {
		return nil, ErrNilResponse
	}
	if !res.Status.valid() {
		return nil, fmt.Errorf("handler returned invalid status %d", res.Status.Code)
	}
	return res, nil
}

// writeResponse is best effort: a failed write only gets logged.
func (s *Server) writeResponse(conn net.Conn, log zerolog.Logger, res *Response) {
	if s.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	if _, err := res.WriteTo(conn); err != nil {
		log.Debug().Err(err).Msg("write response")
		return
	}
	log.Debug().Int("status", res.Status.Code).Msg("response sent")
}
