// Package ws is the websocket transport: it upgrades HTTP requests, maps
// JSON frames to chat service calls and pushes server events back.
package ws

import (
	"chatsphere/auth"
	"chatsphere/domain"
	"chatsphere/observability"
	"chatsphere/services"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

type Options struct {
	AllowedOrigins []string
	MaxMessageSize int64
	BufferSize     int
	RateLimit      rate.Limit
	RateBurst      int
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server is the http.Handler mounted on /ws.
type Server struct {
	log      *slog.Logger
	service  services.IChatService
	verifier *auth.Verifier
	metrics  *observability.Metrics
	opts     Options
	upgrader websocket.Upgrader
	origins  map[string]struct{}
	allowAll bool

	mu      sync.Mutex
	closing bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewServer(log *slog.Logger, service services.IChatService, verifier *auth.Verifier,
	metrics *observability.Metrics, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		log:      log,
		service:  service,
		verifier: verifier,
		metrics:  metrics,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.origins, s.allowAll = normalizeOrigins(log, opts.AllowedOrigins)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "websocket endpoint only accepts GET requests", http.StatusMethodNotAllowed)
		return
	}

	// A token is optional; when present it must be valid and pins the identity
	var authenticated domain.UserID
	if token := auth.TokenFromRequest(r); token != "" && s.verifier.Enabled() {
		user, err := s.verifier.Verify(token)
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		authenticated = user
	}

	if !s.track() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.wg.Done()
		s.log.Debug("Websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	client := newClient(s.ctx, s.log, conn, s.service, s.metrics, authenticated, s.opts)
	go func() {
		defer s.wg.Done()
		client.run()
	}()
}

// Shutdown closes every live connection with a going-away frame and waits
// until their presence has been withdrawn, or until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.cancel()

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

func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.wg.Add(1)
	return true
}

// checkOrigin lets non-browser clients (no Origin header) through, then
// applies the configured list, falling back on same-host.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.allowAll {
		return true
	}
	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	if _, exists := s.origins[normalized]; exists {
		return true
	}
	if len(s.origins) == 0 {
		if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
			return true
		}
	}
	s.log.Warn("Blocked websocket connection from disallowed origin", "origin", origin)
	return false
}

func normalizeOrigins(log *slog.Logger, origins []string) (map[string]struct{}, bool) {
	normalized := make(map[string]struct{}, len(origins))
	allowAll := false
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		switch {
		case trimmed == "":
			continue
		case trimmed == "*":
			allowAll = true
			continue
		}
		n, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn("Ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		normalized[n] = struct{}{}
	}
	return normalized, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
