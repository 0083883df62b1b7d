package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ToolHandler dispatches a tool call on behalf of an investor.
type ToolHandler interface {
	Handle(ctx context.Context, investor, method string, params json.RawMessage) (any, error)
}

// Options configures the HTTP router.
type Options struct {
	// MCP serves the streamable MCP protocol on /mcp.
	MCP http.Handler
	// Tools serves plain JSON-RPC tool calls on /rpc when set.
	Tools ToolHandler
	// Auth guards /rpc. Nil means DefaultInvestor must be set.
	Auth            func(http.Handler) http.Handler
	DefaultInvestor string
	// RateLimit caps requests per second across all clients; zero disables it.
	RateLimit float64
	RateBurst int
	Logger    *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	tools  ToolHandler
	logger *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	if opts.RateLimit > 0 {
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1)), logger))
	}

	srv := &Server{tools: opts.Tools, logger: logger}

	r.Get("/health", srv.handleHealth)
	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
		r.Handle("/mcp/*", opts.MCP)
	}
	if opts.Tools != nil {
		r.Group(func(r chi.Router) {
			if opts.Auth != nil {
				r.Use(opts.Auth)
			} else {
				r.Use(DefaultInvestor(opts.DefaultInvestor))
			}
			r.Post("/rpc", srv.handleRPC)
		})
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	call, err := DecodeToolCall(r.Body)
	if err != nil {
		writeReply(w, Reply{Error: decodeFailure(err)})
		return
	}

	investor, ok := InvestorFromContext(r.Context())
	if !ok || investor == "" {
		http.Error(w, "missing investor", http.StatusUnauthorized)
		return
	}

	result, err := s.tools.Handle(r.Context(), investor, call.Tool, call.Args)
	if err != nil {
		var coded codedError
		if !errors.As(err, &coded) {
			s.logger.Error("tool call failed", "tool", call.Tool, "error", err)
		}
		writeReply(w, Reply{ID: call.ID, Error: toolFailure(err)})
		return
	}
	writeReply(w, Reply{ID: call.ID, Result: result})
}

type requestIDKey struct{}

// RequestIDFromContext returns the id requestLogger assigned, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Header().Set("X-Request-Id", requestID)
			start := time.Now()

			ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.Debug("http request",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"mcp_session_id", r.Header.Get("Mcp-Session-Id"),
				"duration", time.Since(start),
			)
		})
	}
}

func rateLimit(limiter *rate.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				logger.Warn("rate limit exceeded", "path", r.URL.Path)
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
