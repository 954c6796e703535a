// Package api exposes the marketplace over HTTP.
//
// Each core operation maps 1:1 to an endpoint. Handlers validate payloads
// at the boundary, call exactly one core operation, and translate the
// error taxonomy to status codes. No business rules live here.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/memestall/memestall/auth"
	"github.com/memestall/memestall/catalog"
	"github.com/memestall/memestall/config"
	"github.com/memestall/memestall/ledger"
	"github.com/memestall/memestall/profile"
)

// TokenVerifier validates a bearer credential.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// Blobs is the slice of the blob store the API needs.
type Blobs interface {
	PublicURL(ref string) string
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
}

// Server wires the core components to HTTP routes.
type Server struct {
	cfg      *config.Config
	catalog  *catalog.Catalog
	ledger   *ledger.Ledger
	profiles *profile.Store
	blobs    Blobs
	verifier TokenVerifier
	logger   *slog.Logger
	validate *validator.Validate
	router   chi.Router
}

// New creates the Server and builds its router.
func New(cfg *config.Config, cat *catalog.Catalog, led *ledger.Ledger, prof *profile.Store, blobs Blobs, verifier TokenVerifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		catalog:  cat,
		ledger:   led,
		profiles: prof,
		blobs:    blobs,
		verifier: verifier,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/memes", func(r chi.Router) {
			r.Get("/", s.handleListItems)
			r.With(s.optionalAuth).Get("/{id}", s.handleGetItem)
			r.Get("/{id}/downloads", s.handleDownloadCount)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/", s.handleCreateItem)
				r.Delete("/{id}", s.handleDeleteItem)
				r.Post("/{id}/like", s.handleLike)
				r.Delete("/{id}/like", s.handleUnlike)
				r.Post("/{id}/download", s.handleDownload)
				r.Post("/{id}/buy", s.handleBuy)
			})
		})

		r.Get("/users/{id}", s.handlePublicProfile)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me/likes", s.handleLikedItems)
			r.Get("/me/downloads", s.handleUserDownloads)
			r.Get("/users/me", s.handleMyProfile)
			r.Put("/users/me", s.handleUpdateProfile)
			r.Post("/upload/url", s.handleUploadURL)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
