package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/kianooshaz/shrimp/server"
)

func main() {
	def := server.DefaultConfig()
	host := flag.String("addr", "0.0.0.0", "address to bind")
	port := flag.Int("port", 8080, "port to bind")
	index := flag.String("index", "index.html", "file served at /")
	flag.IntVar(&def.MaxRequestSize, "max-request-size", def.MaxRequestSize, "largest request accepted, in bytes")
	flag.IntVar(&def.MaxConnections, "max-connections", def.MaxConnections, "connections handled at once, 0 for no limit")
	flag.DurationVar(&def.ReadTimeout, "read-timeout", 0, "per-connection read timeout, 0 to wait forever")
	flag.DurationVar(&def.ShutdownTimeout, "shutdown-timeout", def.ShutdownTimeout, "time given to in-flight connections on shutdown")
	verbose := flag.Bool("v", false, "log every connection")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	def.Addr = net.JoinHostPort(*host, strconv.Itoa(*port))
	s, err := server.New(def)
	if err != nil {
		log.Fatal().Err(err).Msg("configure server")
	}
	s.Logger = log

	s.Get("/", func(req *server.Request) *server.Response {
		res, err := server.File(*index, "text/html")
		if err != nil {
			log.Warn().Err(err).Msg("index")
			return server.HTML("<h1>Not Found</h1>").WithStatus(server.StatusNotFound)
		}
		return res
	})
	s.Get("/health", func(req *server.Request) *server.Response {
		return server.Text("ok")
	})
	s.Get("/whoami", func(req *server.Request) *server.Response {
		res, err := server.JSON(map[string]string{"remote_addr": req.RemoteAddr})
		if err != nil {
			return server.NewResponse(server.StatusInternalServerError, nil)
		}
		return res
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	color.New(color.FgGreen, color.Bold).Fprintf(os.Stderr, "shrimp serving on http://%s\n", def.Addr)
	if err := s.Run(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Msg("connections still open at shutdown deadline")
			return
		}
		log.Fatal().Err(err).Msg("server stopped")
	}
}
