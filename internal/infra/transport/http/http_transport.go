package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mkrupp/postboard/internal/infra/logging"
)

// HTTPTransportConfig contains configuration parameters for HTTP servers.
type HTTPTransportConfig struct {
	// ServerAddr is the network address to listen on.
	ServerAddr string `env:"SERVER_ADDR" default:":8000"`

	// Timeouts, in seconds.
	ReadHeaderTimeout int64 `env:"READ_HEADER_TIMEOUT" default:"5"`
	ReadTimeout       int64 `env:"READ_TIMEOUT" default:"30"`
	WriteTimeout      int64 `env:"WRITE_TIMEOUT" default:"30"`
	ShutdownTimeout   int64 `env:"SHUTDOWN_TIMEOUT" default:"15"`
}

// HTTPTransport is implemented by the per-service transports.
type HTTPTransport interface {
	http.Handler
}

// Middleware wraps handler with panic recovery, request logging and tracing.
func Middleware(handler http.Handler, log logging.Logger) http.Handler {
	handler = RescueingMiddleware(handler, log)
	handler = LoggingMiddleware(handler, log)
	handler = TracingMiddleware(handler)

	return handler
}

// ListenAndServe serves handler on cfg.ServerAddr until ctx is cancelled, then shuts the
// server down gracefully, waiting up to cfg.ShutdownTimeout for in-flight requests.
func ListenAndServe(ctx context.Context, handler HTTPTransport, cfg HTTPTransportConfig) error {
	sock, err := net.Listen("tcp", cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	return Serve(ctx, sock, handler, cfg)
}

// Serve is ListenAndServe on an existing listener. The listener is closed on return.
func Serve(ctx context.Context, sock net.Listener, handler HTTPTransport, cfg HTTPTransportConfig) error {
	log := logging.GetLogger("infra.transport.http")

	//nolint:exhaustruct
	server := &http.Server{
		Handler:           Middleware(handler, log),
		ErrorLog:          logging.GetLogLogger(log, logging.LevelError),
		ReadHeaderTimeout: seconds(cfg.ReadHeaderTimeout),
		ReadTimeout:       seconds(cfg.ReadTimeout),
		WriteTimeout:      seconds(cfg.WriteTimeout),
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	serveErr := make(chan error, 1)

	go func() {
		defer close(serveErr)

		log.InfoContext(ctx, "listening", "addr", sock.Addr().String())

		if err := server.Serve(sock); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	log.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), seconds(cfg.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		_ = server.Close()

		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-serveErr; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	log.InfoContext(ctx, "shutdown completed")

	return nil
}

func seconds(n int64) time.Duration {
	return time.Duration(n) * time.Second
}
