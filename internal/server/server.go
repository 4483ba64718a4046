// Package server wires the HTTP API: routing, security headers, rate
// limits, and the public pack pages.
package server

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bmorante2012/CleanStream/internal/auth"
	"github.com/bmorante2012/CleanStream/internal/database"
	"github.com/bmorante2012/CleanStream/internal/geoip"
	"github.com/bmorante2012/CleanStream/internal/httputil"
	"github.com/bmorante2012/CleanStream/internal/ratelimit"
	"github.com/bmorante2012/CleanStream/internal/rating"
	"github.com/bmorante2012/CleanStream/internal/syncpack"
	"github.com/bmorante2012/CleanStream/internal/validate"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB        database.DBTX
	Pinger    Pinger
	GeoIP     *geoip.Resolver
	JWTSecret string
	BaseURL   string
}

type Server struct {
	router        chi.Router
	pinger        Pinger
	authHandler   *auth.Handler
	packHandler   *syncpack.Handler
	ratingHandler *rating.Handler
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{BaseURL: cfg.BaseURL}))

	s := &Server{router: r, pinger: cfg.Pinger}

	if cfg.DB != nil {
		jwtSecret := cfg.JWTSecret
		if jwtSecret == "" {
			log.Fatal("JWT_SECRET is required; set the environment variable")
		}

		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:8080"
		}

		secureCookies := strings.HasPrefix(baseURL, "https://")
		s.authHandler = auth.NewHandler(cfg.DB, jwtSecret, secureCookies)

		geo := cfg.GeoIP
		if geo == nil {
			geo, _ = geoip.New("")
		}
		s.packHandler = syncpack.NewHandler(cfg.DB, geo)
		s.ratingHandler = rating.NewHandler(cfg.DB)
	}

	s.routes(cfg.DB)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(db database.DBTX) {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", handleLimits)

	if s.authHandler != nil {
		authLimiter := ratelimit.NewLimiter(0.5, 5)
		s.router.Route("/api/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", s.authHandler.Register)
			r.Post("/login", s.authHandler.Login)
			r.Post("/refresh", s.authHandler.Refresh)
			r.Post("/logout", s.authHandler.Logout)
		})
	}

	if s.packHandler != nil {
		apiLimiter := ratelimit.NewLimiter(5, 20)
		s.router.Route("/api/sync-packs", func(r chi.Router) {
			r.Use(apiLimiter.Middleware)
			r.Get("/", s.packHandler.List)
			r.Get("/{slug}", s.packHandler.GetBySlug)
			r.Post("/{slug}/events", s.packHandler.RecordEvent)

			r.Group(func(r chi.Router) {
				r.Use(s.authHandler.Middleware)
				r.Post("/", s.packHandler.Create)
				r.Patch("/{slug}", s.packHandler.Update)
				r.Delete("/{slug}", s.packHandler.Delete)
			})
		})

		s.router.Route("/api/ratings", func(r chi.Router) {
			r.Use(apiLimiter.Middleware)
			r.Post("/", s.ratingHandler.Submit)
			r.Get("/", s.ratingHandler.List)
		})

		s.router.Get("/", s.handleIndexPage(db))
		s.router.Get("/watch/{slug}", s.handlePackPage(db))
		s.router.Get("/create", handleCreatePage)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func handleLimits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, validate.FieldLimits())
}
