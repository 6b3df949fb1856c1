package socket

import (
	"context"
	"log/slog"
	"net/http"
	"post-it/auth"
	"post-it/errors"
	"post-it/services"
	"post-it/sink"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

type Options struct {
	AllowedOrigins    []string
	SessionBufferSize int
	IdleTimeout       time.Duration
	WriteTimeout      time.Duration
	ReadLimit         int64
}

// Server accepts session connections on GET /ws.
// The credential is checked before the upgrade: a rejected handshake never
// becomes a connection.
type Server struct {
	log      *slog.Logger
	sessions services.ISessionService
	messages services.IDirectMessageService
	options  Options
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	closed  bool
	wg      sync.WaitGroup
}

func NewServer(log *slog.Logger, sessions services.ISessionService, messages services.IDirectMessageService,
	options Options) *Server {
	s := &Server{
		log:      log,
		sessions: sessions,
		messages: messages,
		options:  options,
		clients:  make(map[*websocket.Conn]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin accepts allow-listed origins and non-browser clients, which send none.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || lo.Contains(s.options.AllowedOrigins, origin)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		s.log.Warn("Connection refused", "origin", r.Header.Get("Origin"))
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbox := sink.NewSessionSink(s.options.SessionBufferSize)
	session, err := s.sessions.Open(ctx, auth.CredentialFromRequest(r), outbox)
	if err != nil {
		status := errors.MapToHTTPStatus(err)
		http.Error(w, http.StatusText(status), status)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already answered the client
		s.log.Debug("Upgrade failed", "session_id", session.ID(), "error", err)
		_ = s.sessions.Close(ctx, session, outbox)
		return
	}
	if !s.track(conn) {
		_ = s.sessions.Close(ctx, session, outbox)
		_ = conn.Close()
		return
	}
	defer s.untrack(conn)

	client := NewClient(s.log, conn, session, outbox, s.messages,
		s.options.IdleTimeout, s.options.WriteTimeout, s.options.ReadLimit)

	written := make(chan struct{})
	go func() {
		defer close(written)
		client.WritePump(ctx)
	}()
	go client.KeepAlive(ctx)

	client.ReadPump(ctx)

	// Halts delivery, then lets the write pump send its close frame
	_ = s.sessions.Close(ctx, session, outbox)
	select {
	case <-written:
	case <-time.After(s.options.WriteTimeout):
	}
	_ = conn.Close()
}

func (s *Server) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	s.wg.Done()
}

// Connections returns the number of upgraded connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close drops every connection and waits for their sessions to be disconnected.
// Hijacked connections are not covered by http.Server.Shutdown.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for conn := range s.clients {
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
