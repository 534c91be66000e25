/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package viewer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/browser"
)

const (
	// DefaultHost is the loopback address the viewer binds to.
	DefaultHost = "127.0.0.1"
	// DefaultPort is the viewer's listening port.
	DefaultPort = 8888

	shutdownTimeout = 5 * time.Second
)

// Logger is the subset of logging the server needs.
type Logger interface {
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

// ServerOptions configures a Server.
type ServerOptions struct {
	Host string
	Port int
	// Open launches the system browser once the server is listening.
	Open bool
	// OnReady is called with the page URL once the server is listening.
	OnReady func(url string)
	Logger  Logger
}

// Server serves a rendered page at "/" and a placeholder body everywhere else.
type Server struct {
	page   []byte
	opts   ServerOptions
	logger Logger
	// openURL is replaced in tests.
	openURL func(url string) error
}

// NewServer creates a Server for page.
func NewServer(page []byte, opts ServerOptions) *Server {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Server{page: page, opts: opts, logger: logger, openURL: browser.OpenURL}
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// Handler returns the HTTP handler serving the page.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/" && r.URL.RawQuery == "" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write(s.page)
			return
		}
		_, _ = w.Write([]byte("blank page"))
	})
}

// ListenAndServe binds the configured address and serves until ctx is done.
// Failing to bind is returned; failing to open a browser is only logged.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	url := "http://" + ln.Addr().String()
	if s.opts.OnReady != nil {
		s.opts.OnReady(url)
	}
	if s.opts.Open {
		if err := s.openURL(url); err != nil {
			s.logger.Warning("failed to open %q: %v", url, err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Debug("shutting down viewer at %s", url)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type nopLogger struct{}

func (nopLogger) Warning(string, ...any) {}
func (nopLogger) Debug(string, ...any)   {}
