package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"credit-scoring-api/internal/config"
	"credit-scoring-api/internal/handler"
	"credit-scoring-api/internal/metrics"
	"credit-scoring-api/internal/middleware"
)

type Handlers struct {
	Auth       *handler.AuthHandler
	Prediction *handler.PredictionHandler
	Admin      *handler.AdminHandler
	Model      *handler.ModelHandler
	Health     *handler.HealthHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/", h.Health.Root)
	r.Get("/health", h.Health.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/model/info", h.Model.Info)

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", h.Auth.Register)
			auth.Post("/login", h.Auth.Login)
			auth.With(authMiddleware.RequireAuth, authMiddleware.RequireActive).Get("/me", h.Auth.Me)
		})

		api.Route("/predictions", func(pred chi.Router) {
			pred.Use(authMiddleware.RequireAuth, authMiddleware.RequireActive)
			pred.Post("/predict", h.Prediction.Predict)
			pred.Get("/history", h.Prediction.History)
			pred.Get("/stats", h.Prediction.Stats)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAuth, authMiddleware.RequireActive, authMiddleware.RequireAdmin)
			admin.Get("/users", h.Admin.ListUsers)
			admin.Get("/stats", h.Admin.GlobalStats)
		})
	})

	return r
}
