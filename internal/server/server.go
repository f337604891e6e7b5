// Package server implements the three-card poker table server: a websocket
// listener, a capacity-bounded session registry, and the per-connection
// session state machine. Each accepted connection gets its own goroutines
// and its own deck; the registry is the only shared mutable state.
package server

import (
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cardwire/tricard/internal/deck"
	"github.com/cardwire/tricard/internal/randutil"
)

// shutdownWait bounds how long Stop waits for the accept loop to exit.
const shutdownWait = 5 * time.Second

// Server accepts client connections and runs one Session per connection.
type Server struct {
	addr     string
	cfg      *Config
	logger   zerolog.Logger
	clock    quartz.Clock
	seed     int64
	deckFunc func() *deck.Deck

	upgrader  websocket.Upgrader
	registry  *registry
	running   atomic.Bool
	listener  net.Listener
	httpsrv   *http.Server
	serveDone chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the table rules and capacity.
func WithConfig(cfg *Config) Option {
	return func(s *Server) { s.cfg = cfg }
}

// WithClock injects the clock used for message timestamps.
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithSeed makes all dealing deterministic from a single seed.
func WithSeed(seed int64) Option {
	return func(s *Server) { s.seed = seed }
}

// WithDeckFunc overrides the per-hand deck factory for every session.
// Intended for tests that need stacked decks.
func WithDeckFunc(fn func() *deck.Deck) Option {
	return func(s *Server) { s.deckFunc = fn }
}

// NewServer creates a server listening on addr once started.
func NewServer(addr string, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		cfg:    DefaultConfig(),
		logger: logger.With().Str("component", "server").Logger(),
		clock:  quartz.NewReal(),
		seed:   time.Now().UnixNano(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = newRegistry(s.cfg.Server.MaxClients)
	return s
}

// Start opens the listening socket and begins accepting connections on a
// background goroutine. Calling Start on a running server is a no-op.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug().Msg("Server is already running")
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	s.httpsrv = &http.Server{Handler: mux}
	s.serveDone = make(chan struct{})

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Int("max_clients", s.cfg.Server.MaxClients).
		Msg("Server started")

	go func() {
		defer close(s.serveDone)
		_ = s.httpsrv.Serve(ln)
	}()

	return nil
}

// Addr returns the bound listener address, or the configured address when
// the server is not running. Useful with ":0" listeners in tests.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	return s.registry.count()
}

// Stop disconnects every session, clears the registry, closes the listener
// and waits (bounded) for the accept loop to exit. Idempotent.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.logger.Info().Msg("Stopping server")

	for _, sess := range s.registry.drain() {
		sess.Close()
	}

	err := s.httpsrv.Close()

	select {
	case <-s.serveDone:
	case <-time.After(shutdownWait):
		s.logger.Warn().Msg("Timed out waiting for accept loop to exit")
	}

	s.logger.Info().Msg("Server stopped")
	return err
}

// handleWS upgrades a client connection and hands it to a new session. The
// capacity slot is reserved before the upgrade so concurrent accepts cannot
// oversubscribe the table; at capacity the connection is rejected outright.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id, err := s.registry.reserve()
	if err != nil {
		s.logger.Warn().
			Str("remote", r.RemoteAddr).
			Int("max_clients", s.cfg.Server.MaxClients).
			Msg("Maximum clients reached, rejecting connection")
		http.Error(w, "server full", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.registry.remove(id)
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	sess := newSession(id, conn, s.logger, s.clock, s.cfg.Table, s.sessionDeckFunc(id), func(id int) {
		s.registry.remove(id)
		s.logger.Info().Int("client_id", id).Int("total", s.registry.count()).Msg("Client disconnected")
	})
	s.registry.put(id, sess)
	s.logger.Info().
		Int("client_id", id).
		Str("remote", r.RemoteAddr).
		Int("total", s.registry.count()).
		Msg("Client connected")

	sess.start()
}

// sessionDeckFunc builds the per-hand deck factory for a session. Each
// session draws from its own random stream derived from the server seed,
// so sessions never contend for a shared RNG.
func (s *Server) sessionDeckFunc(id int) func() *deck.Deck {
	if s.deckFunc != nil {
		return s.deckFunc
	}
	rng := randutil.New(s.seed + int64(id))
	return func() *deck.Deck {
		d := deck.New(rng)
		d.Shuffle()
		return d
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}
