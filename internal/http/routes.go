// internal/http/routes.go
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/v1kassh/escrawl-connect/internal/config"
	"github.com/v1kassh/escrawl-connect/internal/directory"
	"github.com/v1kassh/escrawl-connect/internal/http/handlers"
	mw "github.com/v1kassh/escrawl-connect/internal/middleware"
	"github.com/v1kassh/escrawl-connect/internal/models"
	"github.com/v1kassh/escrawl-connect/internal/realtime"
	"github.com/v1kassh/escrawl-connect/internal/store"
	"github.com/v1kassh/escrawl-connect/pkg/logger"
)

type Server struct {
	DB     *pgxpool.Pool
	RDB    *redis.Client
	Config *config.Config
	Logger *logger.Logger

	Realtime *realtime.Server

	system    *handlers.SystemHandler
	auth      *handlers.AuthHandler
	users     *handlers.UsersHandler
	channels  *handlers.ChannelsHandler
	messages  *handlers.MessagesHandler
	websocket *handlers.RealtimeHandler
}

func NewServer(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, log *logger.Logger) *Server {
	dir := directory.New(db, log)
	messageStore := store.New(db, log)
	userStore := store.NewUsers(db, log)

	rt := realtime.NewServer(dir, messageStore, log)
	go rt.Run()

	return &Server{
		DB:       db,
		RDB:      rdb,
		Config:   cfg,
		Logger:   log,
		Realtime: rt,

		system:    handlers.NewSystemHandler(db, rdb, log),
		auth:      handlers.NewAuthHandler(userStore, cfg.JWT, log),
		users:     handlers.NewUsersHandler(userStore, log),
		channels:  handlers.NewChannelsHandler(dir, messageStore, rt, log),
		messages:  handlers.NewMessagesHandler(messageStore, userStore, dir, rt, log),
		websocket: handlers.NewRealtimeHandler(rt, log),
	}
}

// Close stops the realtime hub.
func (s *Server) Close() {
	s.Realtime.Close()
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(mw.Logger(s.Logger))
	r.Use(mw.Recovery(s.Logger))
	r.Use(mw.Security())
	r.Use(mw.CORS(s.Config.CORS))
	r.Use(mw.RateLimit(s.RDB, s.Config.RateLimit))
	r.Use(mw.LimitRequestSize(1024 * 1024))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.system.HandleHealth)

		// Public routes
		r.Group(func(r chi.Router) {
			r.Use(mw.ContentType("application/json"))
			r.Post("/auth/login", s.auth.HandleLogin)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(mw.Auth(s.Config.JWT.Secret))

			r.Get("/auth/me", s.auth.HandleMe)
			r.Get("/ws", s.websocket.HandleWebSocket)

			r.Get("/channels", s.channels.HandleList)
			r.Get("/messages/{roomId}", s.messages.HandleGetRoom)
			r.Get("/users/verified", s.users.HandleListVerified)
			r.Group(func(r chi.Router) {
				r.Use(mw.UserRateLimit(s.RDB, 10, time.Minute))
				r.Get("/conversations/{roomId}/download", s.messages.HandleDownload)
			})

			// Admin and above
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(models.RoleAdmin))

				r.Get("/users", s.users.HandleList)
				r.Delete("/users/{id}", s.users.HandleDelete)
				r.Delete("/messages/{id}", s.messages.HandleDelete)
			})

			// Channel administration
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireChannelManager())

				r.Delete("/channels/{id}", s.channels.HandleDelete)
				r.Delete("/admin/reset-system", s.channels.HandleResetSystem)

				r.Group(func(r chi.Router) {
					r.Use(mw.ContentType("application/json"))
					r.Post("/channels", s.channels.HandleCreate)
					r.Put("/channels/{id}", s.channels.HandleUpdate)
				})
			})

			// Super admin only
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(models.RoleSuperAdmin))
				r.Use(mw.ContentType("application/json"))
				r.Post("/admin/users", s.users.HandleCreate)
			})
		})
	})

	return r
}
