package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

// DefaultCallbackTimeout bounds how long a login waits for the browser to return.
const DefaultCallbackTimeout = 2 * time.Minute

// CallbackServer serves an [OAuthHandler] on a local listener for the duration of one login.
type CallbackServer struct {
	listener net.Listener
	handler  *OAuthHandler
	logger   *log.Logger
	timeout  time.Duration
}

// NewCallbackServer prepares a server for handler on ln. A zero timeout uses [DefaultCallbackTimeout].
func NewCallbackServer(ln net.Listener, handler *OAuthHandler, logger *log.Logger, timeout time.Duration) *CallbackServer {
	if timeout <= 0 {
		timeout = DefaultCallbackTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CallbackServer{listener: ln, handler: handler, logger: logger, timeout: timeout}
}

// Await starts serving, calls open (typically to launch the browser) and waits for the callback.
//
// The server is shut down before Await returns.
func (s *CallbackServer) Await(ctx context.Context, open func() error) (*oauth2.Token, error) {
	router := NewBasicRouter()
	router.Use(RequestLogger(s.logger))
	router.Handler(s.handler)

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("callback server shutdown failed", "error", err)
		}
	}()

	if open != nil {
		if err := open(); err != nil {
			s.logger.Warn("could not open browser", "error", err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	select {
	case err, ok := <-serveErr:
		if ok && err != nil {
			return nil, fmt.Errorf("callback server failed: %w", err)
		}
	default:
	}

	return s.handler.Wait(waitCtx)
}
