package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livepoll-server/internal/auth"
	"github.com/vovakirdan/livepoll-server/internal/config"
	"github.com/vovakirdan/livepoll-server/internal/core"
	"github.com/vovakirdan/livepoll-server/internal/metrics"
	"github.com/vovakirdan/livepoll-server/internal/service/polls"
	"github.com/vovakirdan/livepoll-server/internal/service/votes"
)

// Services groups the application services exposed over HTTP.
type Services struct {
	Hub   *core.Hub
	Auth  *auth.Service
	Polls *polls.Service
	Votes *votes.Service

	// Registry, if set, is served on /metrics and receives HTTP metrics.
	Registry *prometheus.Registry
}

// NewServer builds the HTTP server with REST, WebSocket, health and metrics routes.
func NewServer(svc Services, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(svc, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter builds the gin engine.
func NewRouter(svc Services, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware())

	if svc.Registry != nil {
		router.Use(metrics.NewHTTPMetrics(svc.Registry).Middleware())
		router.GET("/metrics", gin.WrapH(metrics.Handler(svc.Registry)))
	}

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(svc.Hub, svc.Auth, cfg, logger)))

	authenticate := AuthMiddleware(svc.Auth, cfg.RequireAuth, logger)

	users := NewUserHandlers(svc.Auth, logger)
	pollHandlers := NewPollHandlers(svc.Polls, logger)
	voteHandlers := NewVoteHandlers(svc.Votes, logger)

	api := router.Group("/api")
	{
		api.POST("/users", users.Register)
		api.GET("/users", users.List)
		api.POST("/users/login", users.Login)

		api.GET("/polls", pollHandlers.List)
		api.GET("/polls/:id", pollHandlers.Get)
		api.POST("/polls", authenticate, pollHandlers.Create)
		api.DELETE("/polls/:id", authenticate, pollHandlers.Delete)

		api.POST("/votes", authenticate, voteHandlers.Cast)
	}

	return router
}

func healthHandler(c *gin.Context) {
	c.JSON(stdhttp.StatusOK, gin.H{"status": "ok"})
}
