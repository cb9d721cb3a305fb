package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ramonehamilton/cardfinder/internal/api/websocket"
	"github.com/ramonehamilton/cardfinder/internal/catalog"
	"github.com/ramonehamilton/cardfinder/internal/events"
	"github.com/ramonehamilton/cardfinder/internal/filter"
	"github.com/ramonehamilton/cardfinder/internal/groups"
	"github.com/ramonehamilton/cardfinder/internal/ownership"
)

// Server represents the REST API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	port       int
	origins    []string
	logger     *slog.Logger

	// WebSocket hub for real-time events
	wsHub *websocket.Hub

	// Serializes every store access, so the stores see one logical thread.
	lock sync.Locker

	ownership  *ownership.Store
	groups     *groups.Store
	catalog    *catalog.Source
	recomputer *filter.Recomputer
	dispatcher *events.EventDispatcher

	unbind func()
}

// Config holds configuration for the API server.
type Config struct {
	Port           int
	AllowedOrigins []string
	Logger         *slog.Logger
}

// DefaultConfig returns the default API server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           8787,
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
	}
}

// Deps holds the domain objects the server exposes.
type Deps struct {
	Ownership  *ownership.Store
	Groups     *groups.Store
	Catalog    *catalog.Source
	Recomputer *filter.Recomputer
	Dispatcher *events.EventDispatcher

	// Lock guards the stores. The same lock must be handed to the
	// Recomputer's Exec so debounced passes are serialized too.
	Lock sync.Locker
}

// NewServer creates a new API server.
func NewServer(cfg *Config, deps Deps) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Lock == nil {
		deps.Lock = &sync.Mutex{}
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = events.NewEventDispatcher(logger)
	}

	s := &Server{
		router:     chi.NewRouter(),
		port:       cfg.Port,
		origins:    cfg.AllowedOrigins,
		logger:     logger,
		lock:       deps.Lock,
		ownership:  deps.Ownership,
		groups:     deps.Groups,
		catalog:    deps.Catalog,
		recomputer: deps.Recomputer,
		dispatcher: deps.Dispatcher,
	}

	s.wsHub = websocket.NewHub(websocket.HubOptions{
		CheckOrigin: s.checkOrigin,
		Greeting:    s.greeting,
		Logger:      logger,
	})
	s.dispatcher.Register(websocket.NewObserver(s.wsHub))
	s.unbind = BridgeEvents(s.dispatcher, s.ownership, s.groups, s.catalog)

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	// Bodies must be JSON; empty bodies pass.
	s.router.Use(middleware.AllowContentType("application/json"))
}

// requestLogger logs each request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// serialize runs each request with the store lock held.
func (s *Server) serialize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		defer s.lock.Unlock()
		next.ServeHTTP(w, r)
	})
}

// checkOrigin applies the CORS origin list to WebSocket upgrades. Requests
// without an Origin header come from non-browser clients and are allowed.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
		if prefix, ok := strings.CutSuffix(allowed, "*"); ok && strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

// greeting gives a new websocket client the current filter result and group
// selection so it can render before the next change.
func (s *Server) greeting() []websocket.Event {
	s.lock.Lock()
	defer s.lock.Unlock()

	var out []websocket.Event
	if s.recomputer != nil {
		res := s.recomputer.Result()
		out = append(out, websocket.Event{
			Type: events.TypeFilterUpdated,
			Data: events.FilterUpdatedEvent{Visible: res.Visible, Total: res.Total},
		})
	}
	if s.groups != nil {
		st := s.groups.State()
		out = append(out, websocket.Event{
			Type: events.TypeGroupsChanged,
			Data: events.GroupsChangedEvent{ActiveID: st.ActiveID, EditingID: st.EditingID, Groups: len(st.Order)},
		})
	}
	return out
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the WebSocket hub and the API server in goroutines.
func (s *Server) Start() error {
	go s.wsHub.Run()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the API server and the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.unbind()
	s.wsHub.Stop()

	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Port returns the port the server is configured to listen on.
func (s *Server) Port() int {
	return s.port
}

// WebSocketHub returns the WebSocket hub.
func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
