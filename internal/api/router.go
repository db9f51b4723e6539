package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/task-manager-api/internal/api/handlers"
	"github.com/isdelr/task-manager-api/internal/auth"
	"github.com/isdelr/task-manager-api/internal/config"
	"github.com/isdelr/task-manager-api/internal/services"
	"github.com/isdelr/task-manager-api/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg *config.Config, hub *websocket.Hub, authService services.AuthServiceProvider, taskService services.TaskServiceProvider, eventService services.EventServiceProvider) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	rs := handlers.NewResponder(!cfg.IsProduction())
	authHandler := handlers.NewAuthHandler(authService, rs, cfg.IsProduction())
	taskHandler := handlers.NewTaskHandler(taskService, rs)
	eventHandler := handlers.NewEventHandler(eventService, rs)
	wsHandler := handlers.NewWebSocketHandler(hub, cfg.AllowedOrigins)
	requireToken := auth.Middleware(authService)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(requireToken)
				r.Post("/logout", authHandler.Logout)
				r.Post("/refresh", authHandler.Refresh)
				r.Get("/me", authHandler.Me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireToken)

			r.Get("/ws", wsHandler.Serve)
			r.Get("/activity", eventHandler.GetRecent)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.GetAll)
				r.Post("/", taskHandler.Create)
				r.Get("/filter", taskHandler.Filter)
				r.Get("/upcoming", taskHandler.Upcoming)
				r.Get("/statistics", taskHandler.Statistics)
				r.Patch("/bulk-status", taskHandler.BulkStatus)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", taskHandler.Get)
					r.Put("/", taskHandler.Update)
					r.Delete("/", taskHandler.Delete)
					r.Patch("/status", taskHandler.ChangeStatus)
				})
			})
		})
	})

	return r
}
