package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/vncsmyrnk/taskboard/internal/core/ports"
)

// Pinger reports database readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Auth     ports.AuthService
	Users    ports.UserService
	Projects ports.ProjectService
	Members  ports.MemberService
	Tasks    ports.TaskService
	Codec    ports.TokenCodec
	DB       Pinger

	Cookies        CookieConfig
	AllowedOrigins []string
	AuthRateLimit  int
	GoogleEnabled  bool
	ExposeErrors   bool

	// Registry defaults to the global Prometheus registry when nil.
	Registry *prometheus.Registry
	Logger   zerolog.Logger
}

func NewHandler(deps Deps) http.Handler {
	errs := errorWriter{log: deps.Logger, exposeInternal: deps.ExposeErrors}
	validate := newValidator()

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}
	metrics := NewMetrics(registerer)

	authHandler := NewAuthHandler(deps.Auth, deps.Cookies, metrics, validate, errs)
	userHandler := NewUserHandler(deps.Users, deps.Tasks, errs)
	projectHandler := NewProjectHandler(deps.Projects, validate, errs)
	memberHandler := NewMemberHandler(deps.Members, validate, errs)
	taskHandler := NewTaskHandler(deps.Tasks, validate, errs)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.DB.PingContext(ctx); err != nil {
				deps.Logger.Warn().Err(err).Msg("readiness check failed")
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if deps.AuthRateLimit > 0 {
				r.Use(httprate.LimitByIP(deps.AuthRateLimit, time.Minute))
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(ValidateRefreshToken(deps.Codec, errs)).Post("/refresh-token", authHandler.RefreshToken)
			r.Get("/verify-email", authHandler.VerifyEmail)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
			if deps.GoogleEnabled {
				r.Post("/google", authHandler.GoogleLogin)
			}
		})

		r.Route("/v1", func(r chi.Router) {
			r.Use(Authenticate(deps.Codec, errs))

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", userHandler.GetMe)
				r.Get("/tasks", userHandler.AssignedTasks)
				r.Get("/tasks/overdue", userHandler.OverdueTasks)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Post("/", projectHandler.Create)
				r.Get("/", projectHandler.List)

				r.Route("/{projectId}", func(r chi.Router) {
					r.Get("/", projectHandler.Get)
					r.Patch("/", projectHandler.Update)
					r.Delete("/", projectHandler.Delete)
					r.Post("/leave", memberHandler.Leave)

					r.Route("/members", func(r chi.Router) {
						r.Post("/", memberHandler.Add)
						r.Get("/", memberHandler.List)
						r.Patch("/{userId}", memberHandler.UpdateRole)
						r.Delete("/{userId}", memberHandler.Remove)
					})

					r.Route("/tasks", func(r chi.Router) {
						r.Post("/", taskHandler.Create)
						r.Get("/", taskHandler.List)
						r.Get("/{taskId}", taskHandler.Get)
						r.Patch("/{taskId}", taskHandler.Update)
						r.Delete("/{taskId}", taskHandler.Delete)
					})
				})
			})
		})
	})

	return r
}
