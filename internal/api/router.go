package api

import (
	"net/http"
	"time"

	"github.com/Zeygath/th-2024/internal/api/handler"
	"github.com/Zeygath/th-2024/internal/api/middleware"
	"github.com/Zeygath/th-2024/internal/common/security"
	"github.com/Zeygath/th-2024/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles what the router wires into handlers.
type Services struct {
	Auth        handler.AuthService
	Settings    handler.SettingsService
	Leaderboard handler.LeaderboardService
	Progression handler.ProgressionService
	Submissions handler.SubmissionService
	Moderation  handler.ModerationService
	Riddles     handler.RiddleService
	Objects     handler.ObjectReader
	URLVerifier handler.ObjectVerifier
}

type RouterOptions struct {
	CORSOrigins    []string
	MaxUploadBytes int64
}

func NewRouter(svc Services, authn *middleware.Auth, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(metrics.Middleware)

	// Verifier only parses the bearer token; Authenticator decides per route group.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	authHandler := handler.NewAuthHandler(svc.Auth)
	settingsHandler := handler.NewSettingsHandler(svc.Settings)
	leaderboardHandler := handler.NewLeaderboardHandler(svc.Leaderboard)
	riddleHandler := handler.NewRiddleHandler(svc.Progression, svc.Riddles, opts.MaxUploadBytes)
	submissionHandler := handler.NewSubmissionHandler(svc.Submissions, svc.Moderation, opts.MaxUploadBytes)
	fileHandler := handler.NewFileHandler(svc.Objects, svc.URLVerifier)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/auth", func(ar chi.Router) {
			authHandler.RegisterPublicRoutes(ar)
			ar.Group(func(session chi.Router) {
				session.Use(authn.Authenticator)
				authHandler.RegisterSessionRoutes(session)
			})
		})

		v1.Group(func(public chi.Router) {
			settingsHandler.RegisterPublicRoutes(public)
			leaderboardHandler.RegisterPublicRoutes(public)
			fileHandler.RegisterPublicRoutes(public)
		})

		v1.Group(func(user chi.Router) {
			user.Use(authn.Authenticator)
			riddleHandler.RegisterUserRoutes(user)
			submissionHandler.RegisterUserRoutes(user)
		})

		v1.Route("/admin", func(admin chi.Router) {
			admin.Use(authn.Authenticator)
			admin.Use(middleware.RequireAdmin)
			riddleHandler.RegisterAdminRoutes(admin)
			submissionHandler.RegisterAdminRoutes(admin)
			settingsHandler.RegisterAdminRoutes(admin)
		})
	})

	return r
}
