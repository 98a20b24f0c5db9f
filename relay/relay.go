// Package relay implements the forwarding proxy: a standalone HTTP
// service that accepts provider-scoped requests, rewrites them to the
// upstream provider API, and passes the response back byte-faithfully,
// streaming whenever the upstream streams.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/upb/llm-gateway/middleware"
	"github.com/upb/llm-gateway/utils"
)

// UserAgent identifies the relay to upstream APIs
const UserAgent = "llm-gateway-relay/1.0"

// Config configures a relay instance
type Config struct {
	// Host and Port form the listen address; port 0 picks a free port
	Host string
	Port int

	// CORSEnabled applies the CORS layer to all routes
	CORSEnabled bool

	// AllowedOrigins is the CORS origin allowlist; empty means wildcard
	AllowedOrigins []string

	// Upstreams maps a provider name to its API base URL
	Upstreams map[string]string
}

// Relay is the forwarding proxy service. Construct with New, run with
// Start, shut down with Stop. A Relay serves many concurrent requests;
// each forwarded request owns its own upstream connection.
type Relay struct {
	config   Config
	logger   *zap.Logger
	upstream *http.Client
	server   *http.Server

	mu       sync.Mutex
	listener net.Listener
	started  bool
}

// New builds a relay. The upstream client carries no client-level
// timeout: event streams must stay open as long as the upstream keeps
// sending, and per-request bounds flow in through the inbound request
// context instead.
func New(config Config, logger *zap.Logger) *Relay {
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}

	rl := &Relay{
		config:   config,
		logger:   logger,
		upstream: &http.Client{},
	}
	rl.server = &http.Server{
		Handler:           rl.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return rl
}

func (rl *Relay) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(rl.logger))
	if rl.config.CORSEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rl.config.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", rl.handleHealth)
	r.Handle("/proxy/{provider}/*", http.HandlerFunc(rl.handleForward))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFound(w, "route not found")
	})

	return r
}

// HealthResponse is the health endpoint payload
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// handleHealth responds immediately, without any upstream call
func (rl *Relay) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Start binds the listener and serves in the background. It returns once
// the relay is accepting connections, or with the bind error. ctx becomes
// the base context of every served request.
func (rl *Relay) Start(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.started {
		return errors.New("relay already started")
	}

	addr := fmt.Sprintf("%s:%d", rl.config.Host, rl.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("relay: binding %s: %w", addr, err)
	}
	rl.listener = listener
	rl.started = true
	rl.server.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		if err := rl.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rl.logger.Error("relay server terminated", zap.Error(err))
		}
	}()

	rl.logger.Info("relay listening", zap.String("address", listener.Addr().String()))
	return nil
}

// Stop gracefully shuts the relay down, letting in-flight requests
// finish. It is idempotent, and stopping a relay that never started is a
// no-op success.
func (rl *Relay) Stop(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.started {
		return nil
	}
	rl.started = false

	if err := rl.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("relay: shutdown: %w", err)
	}
	rl.logger.Info("relay stopped")
	return nil
}

// Addr returns the bound listen address, useful when Port was 0. It is
// empty before Start.
func (rl *Relay) Addr() string {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.listener == nil {
		return ""
	}
	return rl.listener.Addr().String()
}
