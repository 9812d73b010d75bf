package server

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"instaguard/internal/db"
	"instaguard/internal/handlers"
	"instaguard/internal/handlers/api"
	"instaguard/internal/middleware"
	"instaguard/internal/pipeline"
)

// Deps are the application services the routes are built on.
type Deps struct {
	Store      db.Store
	Pipeline   *pipeline.Service
	Model      api.ReadinessChecker
	Collectors []string
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(ctx context.Context, deps Deps) error {
	devAuth := !s.Cfg.IsOIDCEnabled()
	if devAuth && !s.Cfg.IsDev() {
		return errors.New("OIDC_ISSUER is required outside development")
	}
	if devAuth {
		log.Println("WARNING: OIDC is not configured; all requests run as the local dev admin")
	}

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(deps.Store, devAuth)

	// Initialize handlers
	classifyPage := handlers.NewClassifyHandler(deps.Pipeline, s.Cfg)
	decisionPage := handlers.NewDecisionHandler(deps.Store, s.Cfg)
	classifyAPI := api.NewClassifyHandler(deps.Pipeline)
	decisionAPI := api.NewDecisionHandler(deps.Store)
	healthAPI := api.NewHealthHandler(deps.Store, deps.Model, deps.Collectors)

	// Auth routes
	if !devAuth {
		authHandler, err := handlers.NewAuthHandler(ctx, s.Cfg, deps.Store)
		if err != nil {
			return err
		}
		s.App.Get("/auth/login", authHandler.Login)
		s.App.Get("/auth/callback", authHandler.Callback)
		s.App.Get("/auth/logout", authHandler.Logout)
	} else {
		s.App.Get("/auth/logout", func(c fiber.Ctx) error {
			return c.Redirect().To("/")
		})
	}

	// Operational routes
	s.App.Get("/healthz", healthAPI.Check)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Frontend routes
	s.App.Get("/", authMiddleware.RequireAuth, classifyPage.Index)
	s.App.Post("/classify", authMiddleware.RequireAuth, s.ClassifyLimiter, classifyPage.Submit)
	s.App.Get("/decisions", authMiddleware.RequireAuth, decisionPage.History)
	s.App.Get("/admin/decisions", authMiddleware.RequireAuth, authMiddleware.RequireAdmin, decisionPage.Audit)

	// JSON API
	apiGroup := s.App.Group("/api", authMiddleware.RequireAuth)
	apiGroup.Post("/classify", s.ClassifyLimiter, classifyAPI.Classify)
	apiGroup.Post("/classify/features", classifyAPI.Score)
	apiGroup.Get("/decisions", decisionAPI.Mine)

	admin := apiGroup.Group("/admin", authMiddleware.RequireAdmin)
	admin.Get("/decisions", decisionAPI.List)
	admin.Get("/decisions/stats", decisionAPI.Stats)

	return nil
}
