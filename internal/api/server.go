package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/todmy/stoneweight/internal/auth"
	"github.com/todmy/stoneweight/internal/logger"
	"github.com/todmy/stoneweight/internal/metrics"
	"github.com/todmy/stoneweight/internal/receipt"
	"github.com/todmy/stoneweight/internal/storage"
	"github.com/todmy/stoneweight/pkg/models"
)

// ImageStore turns inline images into stored files
type ImageStore interface {
	Resolve(value, owner string) (string, error)
	Delete(url string) error
}

// Importer bulk-loads a snapshot
type Importer interface {
	Import(ctx context.Context, snap models.Snapshot) (storage.ImportStats, error)
}

// Deps holds everything the server needs
type Deps struct {
	Log             *logger.Logger
	Auth            auth.Service
	Stones          storage.StoneRepository
	Models          storage.ModelRepository
	StoneSets       storage.StoneSetRepository
	Company         storage.CompanyRepository
	Importer        Importer
	Images          ImageStore
	UploadsDir      string
	CORSOrigins     []string
	ReceiptSettings receipt.Settings
	Now             func() time.Time
}

type Server struct {
	router          *chi.Mux
	log             *logger.Logger
	authService     auth.Service
	authHandlers    *auth.Handlers
	stoneRepo       storage.StoneRepository
	modelRepo       storage.ModelRepository
	stoneSetRepo    storage.StoneSetRepository
	companyRepo     storage.CompanyRepository
	importer        Importer
	images          ImageStore
	uploadsDir      string
	receiptSettings receipt.Settings
	sessions        *sessionHistories
	now             func() time.Time
}

func NewServer(deps Deps) *Server {
	s := &Server{
		router:          chi.NewRouter(),
		log:             deps.Log,
		authService:     deps.Auth,
		authHandlers:    auth.NewHandlers(deps.Auth),
		stoneRepo:       deps.Stones,
		modelRepo:       deps.Models,
		stoneSetRepo:    deps.StoneSets,
		companyRepo:     deps.Company,
		importer:        deps.Importer,
		images:          deps.Images,
		uploadsDir:      deps.UploadsDir,
		receiptSettings: deps.ReceiptSettings,
		now:             deps.Now,
	}
	if s.receiptSettings == (receipt.Settings{}) {
		s.receiptSettings = receipt.DefaultSettings()
	}
	s.receiptSettings = s.receiptSettings.Normalize()
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.sessions = newSessionHistories(s.now)

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "https://*"}
	}

	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Middleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler())

	if s.uploadsDir != "" {
		s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadsDir))))
	}

	s.router.Route("/api", func(r chi.Router) {
		// Auth routes (public)
		r.Post("/auth/login", s.authHandlers.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.authService))

			r.Get("/auth/me", s.authHandlers.Me)

			r.Route("/stones", func(r chi.Router) {
				r.Get("/", s.handleListStones)
				r.Post("/", s.handleCreateStone)
				r.Put("/{id}", s.handleUpdateStone)
				r.Delete("/{id}", s.handleDeleteStone)
			})

			r.Route("/models", func(r chi.Router) {
				r.Get("/", s.handleListModels)
				r.Post("/", s.handleCreateModel)
				r.Get("/{id}", s.handleGetModel)
				r.Put("/{id}", s.handleUpdateModel)
				r.Delete("/{id}", s.handleDeleteModel)
			})

			r.Route("/stone-sets", func(r chi.Router) {
				r.Get("/", s.handleListStoneSets)
				r.Post("/", s.handleCreateStoneSet)
				r.Put("/{id}", s.handleUpdateStoneSet)
				r.Delete("/{id}", s.handleDeleteStoneSet)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", s.authHandlers.ListUsers)
				r.Post("/", s.authHandlers.CreateUser)
				r.Put("/{id}", s.authHandlers.UpdateUser)
				r.Delete("/{id}", s.authHandlers.DeleteUser)
			})

			r.Get("/company-settings", s.handleGetCompanySettings)
			r.Put("/company-settings", s.handleUpdateCompanySettings)

			r.Post("/calculate", s.handleCalculate)

			r.Route("/history", func(r chi.Router) {
				r.Get("/", s.handleListHistory)
				r.Post("/", s.handleAppendHistory)
				r.Delete("/", s.handleClearHistory)
				r.Get("/summary", s.handleHistorySummary)
				r.Get("/receipt.pdf", s.handleHistoryReceipt)
				r.Delete("/{id}", s.handleRemoveHistory)
			})

			r.Post("/receipt", s.handleReceipt)

			r.Get("/export", s.handleExportJSON)
			r.Get("/export.xlsx", s.handleExportXLSX)
			r.Post("/migrate", s.handleMigrate)
		})
	})
}

// ServeHTTP makes Server an http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// requestLogger logs one line per request through zap
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondStorageError maps repository errors onto status codes
func (s *Server) respondStorageError(w http.ResponseWriter, r *http.Request, err error, what string) {
	if errorsIsNotFound(err) {
		respondError(w, http.StatusNotFound, what+" not found")
		return
	}
	s.log.Error("storage failure", "request_id", requestID(r), "what", what, "error", err)
	respondError(w, http.StatusInternalServerError, "failed to process "+what)
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
