// Package chi implements the chat relay HTTP server on the chi router.
//
// The relay accepts a chat request from a browser or CLI client, opens a
// channel on an upstream [chat.Transport] and forwards every upstream frame
// to the client, over SSE (POST /chat) or WebSocket (GET /chat/ws).
package chi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fwojciec/chat"
	"github.com/fwojciec/chat/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Server is the relay server.
type Server struct {
	upstream       chat.Transport
	logger         *zap.Logger
	allowedOrigins []string
	limiter        *Limiter
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithAllowedOrigins sets the CORS allowed origins. Default is "*".
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithRateLimit limits each client address to rate requests per second with
// the given burst. A zero rate disables limiting.
func WithRateLimit(rate float64, burst int) Option {
	return func(s *Server) {
		if rate <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = NewLimiter(LimiterConfig{Rate: rate, Burst: burst})
	}
}

// NewServer returns a Server relaying to upstream.
func NewServer(upstream chat.Transport, opts ...Option) *Server {
	s := &Server{
		upstream:       upstream,
		logger:         zap.NewNop(),
		allowedOrigins: []string{"*"},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(rateLimit(s.limiter))
		r.Post("/chat", s.handleChat)
		r.Get("/chat/ws", s.handleWebSocket(websocket.NewUpgrader(
			websocket.WithCheckOrigin(s.checkOrigin),
		)))
	})

	return otelhttp.NewHandler(r, "chat-relay")
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down,
// waiting at most shutdownTimeout for in-flight requests.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, shutdownTimeout time.Duration, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("relay listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("chi: %w", err)
	case <-ctx.Done():
	}

	logger.Info("relay shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("chi: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("chi: %w", err)
	}
	return nil
}
