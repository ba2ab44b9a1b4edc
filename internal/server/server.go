package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"healthboard/internal/board"
	"healthboard/internal/logger"
	"healthboard/internal/metrics"
	"healthboard/internal/models"
	"healthboard/internal/render"
)

//go:embed static/*
var embeddedStatic embed.FS

// Server wraps HTTP serving of the dashboard, its API and static assets.
type Server struct {
	httpServer *http.Server
	board      *board.Board
	metrics    *metrics.Manager
	html       *render.HTML
	staticFS   fs.FS
	targets    []models.Target
	interval   time.Duration
	log        logger.Logger
	startedAt  time.Time

	// bootID changes on every process start; board versions restart with it.
	bootID string
}

// New creates a configured HTTP server for the dashboard.
func New(addr string, b *board.Board, m *metrics.Manager, targets []models.Target, interval time.Duration, log logger.Logger) (*Server, error) {
	staticFS, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets missing: %w", err)
	}
	html, err := render.NewHTML()
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.NewManager()
	}
	if log == nil {
		log = logger.Discard()
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		board:     b,
		metrics:   m,
		html:      html,
		staticFS:  staticFS,
		targets:   append([]models.Target(nil), targets...),
		interval:  interval,
		log:       log,
		startedAt: time.Now().UTC(),
		bootID:    uuid.NewString(),
	}
	s.registerRoutes(mux)
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// BootID identifies this server process to connected pages.
func (s *Server) BootID() string {
	return s.bootID
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	s.log.Info(context.Background(), "http server listening", logger.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	fileServer := http.FileServer(http.FS(s.staticFS))

	mux.HandleFunc("/", s.instrument("index", s.handleIndex))
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.Handle("/favicon.ico", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("/api/status", s.instrument("status", s.handleStatus))
	mux.HandleFunc("/api/targets", s.instrument("targets", s.handleTargets))
	mux.HandleFunc("/api/uptime", s.instrument("uptime", s.handleUptime))
	mux.HandleFunc("/healthz", s.instrument("healthz", s.handleHealthz))
	mux.Handle("/metrics", s.metrics.Handler())
	// The websocket handler needs the raw writer for hijacking.
	mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := render.NewPageData(s.board.Snapshot(), s.targets, int(s.interval/time.Second), s.metrics.Uptime())
	data.BootID = s.bootID
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.html.Page(w, data); err != nil {
		s.log.Error(r.Context(), "render page", logger.Error(err))
	}
}

type statusResponse struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Version     uint64              `json:"version"`
	Services    []board.ServiceNode `json:"services"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("target"); name != "" {
		node, ok := s.board.Service(name)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown target"})
			return
		}
		writeJSON(w, http.StatusOK, node)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		GeneratedAt: time.Now().UTC(),
		Version:     s.board.Version(),
		Services:    s.board.Snapshot(),
	})
}

func (s *Server) handleTargets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.targets)
}

func (s *Server) handleUptime(w http.ResponseWriter, _ *http.Request) {
	summary := s.metrics.Uptime().Snapshot()
	if summary == nil {
		summary = []metrics.ServiceUptime{}
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleHealthz reports the dashboard itself in the same shape it polls,
// so one dashboard can watch another.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	nodes := s.board.Snapshot()
	up := 0
	for _, n := range nodes {
		if n.Up() {
			up++
		}
	}
	writeJSON(w, http.StatusOK, models.StatusReport{
		Status: models.StatusUp,
		Components: map[string]models.ComponentReport{
			"poller": {
				Status: models.StatusUp,
				Details: map[string]any{
					"targets":          len(s.targets),
					"services_seen":    len(nodes),
					"services_up":      up,
					"interval_seconds": int(s.interval / time.Second),
					"reconciliations":  s.board.Version(),
				},
			},
			"server": {
				Status: models.StatusUp,
				Details: map[string]any{
					"started_at": s.startedAt.Format(time.RFC3339),
					"boot_id":    s.bootID,
				},
			},
		},
	})
}

func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.metrics.RecordHTTPRequest(endpoint, r.Method, strconv.Itoa(wrapped.statusCode))
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
