package server

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

const DefaultMaxRequestSize = 69420

// Config holds the options a Server is built from.
type Config struct {
	// Addr is the host:port to bind.
	Addr string
	// MaxRequestSize bounds the single read of each connection. Requests
	// longer than this get a 413.
	MaxRequestSize int
	// MaxConnections bounds how many connections are handled at once.
	// Zero means no limit.
	MaxConnections int
	// ReadTimeout and WriteTimeout set per-connection deadlines when
	// non-zero.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// ShutdownTimeout bounds the drain Run performs once its context is
	// done. Zero waits for every connection.
	ShutdownTimeout time.Duration
}

func DefaultConfig() Config {
	cpus := runtime.NumCPU()
	return Config{
		Addr:            "0.0.0.0:8080",
		MaxRequestSize:  DefaultMaxRequestSize,
		MaxConnections:  cpus * cpus * 4,
		ShutdownTimeout: 5 * time.Second,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is empty"))
	}
	if c.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Errorf("max request size must be positive, got %d", c.MaxRequestSize))
	}
	if c.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("max connections must not be negative, got %d", c.MaxConnections))
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
