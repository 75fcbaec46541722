// Package server exposes a running layout over HTTP: graphs are uploaded,
// layouts and renderings fetched, pointer gestures forwarded to the
// interaction controller, and snapshots streamed over a websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/TFMV/versegraph/engine"
	"github.com/TFMV/versegraph/interaction"
	"github.com/TFMV/versegraph/snapshot"
)

// maxUploadSize caps graph uploads
const maxUploadSize = 10 << 20

// Config for the server
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// Server serves a single engine
type Server struct {
	cfg        Config
	engine     *engine.Engine
	controller *interaction.Controller
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
	validate   *validator.Validate
	upgrader   websocket.Upgrader
	hub        *hub

	// editMu serializes read-modify-write edits of the engine's graph
	editMu      sync.Mutex
	unsubscribe func()
}

// New creates a server for eng. Pointer gestures go through controller.
// gatherer may be nil, in which case /metrics serves the default registry.
func New(cfg Config, eng *engine.Engine, controller *interaction.Controller, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		cfg:        cfg,
		engine:     eng,
		controller: controller,
		gatherer:   gatherer,
		logger:     logger,
		validate:   validator.New(),
		hub:        newHub(logger),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.unsubscribe = eng.Subscribe(func(snap snapshot.Snapshot) {
		s.hub.broadcast(message{Type: messageSnapshot, Snapshot: &snap})
	})
	controller.OnSelect(func(ev interaction.SelectEvent) {
		s.hub.broadcast(message{Type: messageSelect, NodeID: ev.NodeID})
	})
	controller.OnDrag(func(ev interaction.DragEvent) {
		s.hub.broadcast(message{Type: messageDrag, NodeID: ev.NodeID, X: ev.X, Y: ev.Y})
	})
	return s
}

// Handler returns the router with all routes and middleware
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/", s.handleIndex)
	router.Get("/healthz", s.handleHealth)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	router.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGetGraph)
		r.Put("/graph", s.handlePutGraph)
		r.Post("/graph", s.handlePutGraph)
		r.Post("/upload", s.handleUpload)
		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", s.handleCreateNode)
			r.Get("/{nodeID}", s.handleGetNode)
			r.Delete("/{nodeID}", s.handleDeleteNode)
		})
		r.Post("/edges", s.handleCreateEdge)
		r.Get("/layout", s.handleLayout)
		r.Get("/render", s.handleRender)
		r.Put("/viewport", s.handleViewport)
		r.Post("/reheat", s.handleReheat)
		r.Post("/pointer", s.handlePointer)
		r.Post("/zoom", s.handleZoom)
		r.Get("/stream", s.handleStream)
	})

	return router
}

// Start listens on the configured address until ctx is cancelled, then
// shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close detaches the server from the engine and drops stream clients
func (s *Server) Close() {
	s.unsubscribe()
	s.hub.closeAll()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// requestLogger logs one line per request
func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
