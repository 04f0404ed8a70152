package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JustinTDCT/CineLog/internal/auth"
	"github.com/JustinTDCT/CineLog/internal/catalog"
	"github.com/JustinTDCT/CineLog/internal/collection"
	"github.com/JustinTDCT/CineLog/internal/config"
	"github.com/JustinTDCT/CineLog/internal/db"
	"github.com/JustinTDCT/CineLog/internal/httputil"
	"github.com/JustinTDCT/CineLog/internal/jobs"
	"github.com/JustinTDCT/CineLog/internal/settings"
	"github.com/JustinTDCT/CineLog/internal/version"
)

// Deps are the collaborators the server routes to. DB and JobQueue are
// optional.
type Deps struct {
	DB       *db.DB
	Catalog  *catalog.Catalog
	Store    *collection.Store
	Exporter *jobs.Exporter
	JobQueue *jobs.Queue
	Hub      *WSHub
}

type Server struct {
	config    *config.Config
	db        *db.DB
	catalog   *catalog.Catalog
	store     *collection.Store
	exporter  *jobs.Exporter
	jobQueue  *jobs.Queue
	issuer    *auth.Issuer
	wsHub     *WSHub
	version   version.Info
	startedAt time.Time
	router    chi.Router
}

func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Catalog == nil || deps.Store == nil {
		return nil, errors.New("api: catalog and store are required")
	}
	hub := deps.Hub
	if hub == nil {
		hub = NewWSHub()
	}

	s := &Server{
		config:    cfg,
		db:        deps.DB,
		catalog:   deps.Catalog,
		store:     deps.Store,
		exporter:  deps.Exporter,
		jobQueue:  deps.JobQueue,
		wsHub:     hub,
		version:   version.Load(),
		startedAt: time.Now(),
	}
	if cfg.AuthEnabled() {
		issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
		if err != nil {
			return nil, err
		}
		s.issuer = issuer
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(securityHeadersMiddleware)
	r.Use(corsMiddleware)

	// Public
	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	if s.issuer != nil {
		r.Mount("/api/v1/auth", auth.NewHandler(s.issuer, s.config.APIKeyHash).Router())
	}

	r.Group(func(r chi.Router) {
		if s.issuer != nil {
			r.Use(auth.NewMiddleware(s.issuer).RequireAuth)
		}

		r.Mount("/api/v1/catalog", catalog.NewHandler(s.catalog).Router())
		r.Mount("/api/v1/collection", collection.NewHandler(s.store, s.catalog, s.config.OverviewLimit).Router())
		if s.db != nil {
			r.Mount("/api/v1/settings", settings.NewHandler(settings.NewRepository(s.db)).Router())
		}

		r.Post("/api/v1/export", s.handleExport)
		r.Get("/api/v1/exports", s.handleListExports)

		r.Get("/api/v1/ws", s.handleWebSocket)
	})

	s.router = r
}

// ──────────────────── Handlers ────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":        s.version.Version,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"kv_backend":     s.config.KVBackend,
		"catalog_size":   s.catalog.Len(),
		"collection":     s.store.Counts(),
		"ws_clients":     s.wsHub.ClientCount(),
		"auth_enabled":   s.issuer != nil,
		"jobs_enabled":   s.jobQueue != nil,
	})
}

// handleExport queues an export when a job queue is configured and runs it
// inline otherwise.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.jobQueue != nil {
		taskID, err := jobs.EnqueueExport(s.jobQueue, "manual")
		if err != nil {
			log.Printf("[api] enqueue export: %v", err)
			httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to queue export")
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
		return
	}

	if s.exporter == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "EXPORT_DISABLED", "exports are not configured")
		return
	}
	res, err := s.exporter.Export(r.Context(), "manual")
	if err != nil {
		log.Printf("[api] export: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "export failed")
		return
	}
	s.wsHub.Broadcast(jobs.EventExportComplete, res)
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		httputil.WriteJSON(w, http.StatusOK, []string{})
		return
	}
	names, err := s.exporter.List()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list exports")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, names)
}

// ──────────────────── Middleware ────────────────────

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware answers preflight requests itself.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
