package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/buckshot-backend/internal/engine"
	"github.com/DoyleJ11/buckshot-backend/internal/hub"
	"github.com/DoyleJ11/buckshot-backend/internal/metrics"
	"github.com/DoyleJ11/buckshot-backend/internal/ws"
)

type RouterConfig struct {
	Hub    *hub.Hub
	Logger *zap.Logger
	// RateLimiter is optional; nil disables rate limiting.
	RateLimiter      *IPRateLimiter
	CORSOrigins      []string
	SubscriberBuffer int
	CommandTimeout   time.Duration
}

func SetupRoutes(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.CommandTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	h := &handlers{hub: cfg.Hub, log: log, timeout: timeout}

	// Public routes
	r.Get("/healthz", Healthz)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/ws", ws.Handler(cfg.Hub, ws.Options{
		Logger:         log,
		OriginPatterns: cfg.CORSOrigins,
		OutboxSize:     cfg.SubscriberBuffer,
		CommandTimeout: timeout,
	}))

	r.Route("/lobbies", func(r chi.Router) {
		r.Post("/", h.CreateLobby)
		r.Get("/", h.ListLobbies)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetLobby)
			r.Post("/join", h.playerAction(engine.CmdJoin))
			r.Post("/leave", h.playerAction(engine.CmdLeave))
			r.Post("/start", h.playerAction(engine.CmdStartGame))
			r.Post("/shoot", h.playerAction(engine.CmdShoot))
			r.Post("/items", h.UseItem)
			r.Post("/spectate", h.playerAction(engine.CmdSetSpectator))
			r.Post("/host", h.playerAction(engine.CmdSetHost))
			r.Put("/settings", h.playerAction(engine.CmdConfigure))
		})
	})
	return r
}
