package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-broker-auth/internal/config"
	"github.com/jrsteele09/go-broker-auth/oauthmodel"
	"github.com/jrsteele09/go-broker-auth/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// CodeExchanger trades an authorization code for tokens.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*oauthmodel.TokenResponse, error)
}

type listenerState int

const (
	stateWaiting listenerState = iota
	stateAccepted
	stateClosed
)

type outcome struct {
	tokens *oauthmodel.TokenResponse
	err    error
}

// Server is the local HTTPS endpoint the provider redirects the browser to.
// It accepts at most one authorization code and exchanges it exactly once.
type Server struct {
	mux       *http.ServeMux
	routes    []string
	config    config.ListenerConfig
	exchanger CodeExchanger
	recorder  sessions.CodeRecorder
	logger    zerolog.Logger
	tlsConfig *tls.Config
	timeout   time.Duration

	httpServer *http.Server
	listener   net.Listener

	mu      sync.Mutex
	state   listenerState
	outcome chan outcome

	closeOnce sync.Once
	closeErr  error
}

type Option func(*Server)

// WithTLSConfig serves with the given TLS configuration instead of loading the configured cert/key files.
func WithTLSConfig(tlsConfig *tls.Config) Option {
	return func(s *Server) {
		s.tlsConfig = tlsConfig
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTimeout overrides the configured no-code timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.timeout = timeout
	}
}

func New(cfg config.ListenerConfig, exchanger CodeExchanger, recorder sessions.CodeRecorder, opts ...Option) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		config:    cfg,
		exchanger: exchanger,
		recorder:  recorder,
		logger:    log.Logger,
		timeout:   cfg.GetListenerTimeout(),
		outcome:   make(chan outcome, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "listener").Logger()

	s.initRoutes()
	s.logRoutes()

	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logger.Debug().Str("method", parts[0]).Str("path", parts[1]).Msg("Route registered")
		} else {
			s.logger.Debug().Str("path", parts[0]).Msg("Route registered")
		}
	}
}

// Listen binds the configured address. It is called implicitly by Serve when needed.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}

	tlsConfig := s.tlsConfig
	certFile, keyFile := s.config.GetTLSCertFile(), s.config.GetTLSKeyFile()
	if tlsConfig == nil && certFile != "" && keyFile != "" {
		pair, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return fmt.Errorf("[Server Listen] failed to load TLS key pair: %w", err)
		}
		tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{pair},
			MinVersion:   tls.VersionTLS12,
		}
	}

	ln, err := net.Listen("tcp", s.config.GetListenerAddr())
	if err != nil {
		return fmt.Errorf("[Server Listen] failed to bind %s: %w", s.config.GetListenerAddr(), err)
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}
	s.listener = ln

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Bool("tls", tlsConfig != nil).
		Dur("timeout", s.timeout).
		Msg("Callback listener bound")
	return nil
}

// Addr reports the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve blocks until a code has been exchanged, the exchange failed, the no-code
// timeout elapsed or ctx was cancelled. A timeout or cancellation without a code
// returns (nil, nil). The port is released on every path.
func (s *Server) Serve(ctx context.Context) (*oauthmodel.TokenResponse, error) {
	if err := s.Listen(); err != nil {
		return nil, err
	}
	defer s.Close()

	serveErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case out := <-s.outcome:
		return out.tokens, out.err
	case err := <-serveErr:
		return nil, fmt.Errorf("[Server Serve] callback listener stopped: %w", err)
	case <-timer.C:
		return s.stopWaiting("No authorization code received before timeout")
	case <-ctx.Done():
		return s.stopWaiting("Callback listener cancelled")
	}
}

// stopWaiting closes the listener to new codes, unless one is already being exchanged.
func (s *Server) stopWaiting(reason string) (*oauthmodel.TokenResponse, error) {
	s.mu.Lock()
	if s.state == stateAccepted {
		s.mu.Unlock()
		s.logger.Debug().Msg("Awaiting in-flight token exchange")
		out := <-s.outcome
		return out.tokens, out.err
	}
	s.state = stateClosed
	s.mu.Unlock()

	s.logger.Warn().Msg(reason)
	return nil, nil
}

// Close releases the port. It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.state == stateWaiting {
			s.state = stateClosed
		}
		s.mu.Unlock()

		if s.listener == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Err(err).Msg("Graceful shutdown failed, closing listener")
			s.closeErr = s.httpServer.Close()
		}
		// Shutdown does not close listeners that Serve never saw.
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) && s.closeErr == nil {
			s.closeErr = err
		}
		s.logger.Debug().Msg("Callback listener closed")
	})
	return s.closeErr
}

// accept moves the listener from waiting to accepted. Only the first caller wins.
func (s *Server) accept() listenerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateWaiting {
		return s.state
	}
	s.state = stateAccepted
	return stateWaiting
}

func (s *Server) resolve(out outcome) {
	select {
	case s.outcome <- out:
	default:
	}
}
