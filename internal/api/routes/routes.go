package routes

import (
	"log/slog"
	"net/http"

	_ "civic-realtime/docs"
	"civic-realtime/internal/api/handlers"
	"civic-realtime/internal/api/middleware"
	"civic-realtime/internal/auth"
	"civic-realtime/internal/config"
	"civic-realtime/internal/services"
	"civic-realtime/internal/websocket"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Router struct {
	engine            *gin.Engine
	hub               *websocket.Hub
	cfg               *config.Config
	wsHandler         *handlers.WSHandler
	postHandler       *handlers.PostHandler
	communityHandler  *handlers.CommunityHandler
	userHandler       *handlers.UserHandler
	moderationHandler *handlers.ModerationHandler
	rateLimitMW       *middleware.RateLimitMiddleware
	authMW            *middleware.AuthMiddleware
}

// NewRouter wires the REST surface. limiter may be nil when redis is
// disabled.
func NewRouter(
	cfg *config.Config,
	hub *websocket.Hub,
	svc *services.Services,
	verifier *auth.TokenVerifier,
	limiter services.RateLimiter,
	log *slog.Logger,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	engine.Use(middleware.LogApi(log))

	return &Router{
		engine:            engine,
		hub:               hub,
		cfg:               cfg,
		wsHandler:         handlers.NewWSHandler(hub),
		postHandler:       handlers.NewPostHandler(svc.Posts),
		communityHandler:  handlers.NewCommunityHandler(svc.Communities),
		userHandler:       handlers.NewUserHandler(svc.Follows, svc.Notifications, hub),
		moderationHandler: handlers.NewModerationHandler(svc.Moderation, svc.Authz),
		rateLimitMW:       middleware.NewRateLimitMiddleware(limiter, log),
		authMW:            middleware.NewAuthMiddleware(verifier),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "websocket": r.hub.Stats()})
	})
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	limits := r.cfg.RateLimit
	api := r.engine.Group("/api/v1")
	api.Use(r.authMW.RequireAuth())

	// WebSocket endpoint: authenticated before upgrade
	api.GET("/ws",
		r.rateLimitMW.WebSocketRateLimit(limits.Connections, limits.ConnWindow),
		r.wsHandler.HandleWebSocket,
	)

	rest := api.Group("")
	rest.Use(r.rateLimitMW.RateLimit(limits.APIRequests, limits.APIWindow))
	{
		rest.GET("/presence/online", r.userHandler.OnlineUsers)
		rest.GET("/notifications/unread-count", r.userHandler.UnreadCount)

		users := rest.Group("/users")
		{
			users.POST("/:id/follow", r.userHandler.Follow)
			users.DELETE("/:id/follow", r.userHandler.Unfollow)
		}

		posts := rest.Group("/posts")
		{
			posts.POST("", r.postHandler.CreatePost)
			posts.PUT("/:id", r.postHandler.UpdatePost)
			posts.DELETE("/:id", r.postHandler.DeletePost)
			posts.POST("/:id/votes", r.postHandler.VotePoll)
			posts.POST("/:id/reports", r.postHandler.ReportPost)
		}

		communities := rest.Group("/communities")
		{
			communities.POST("", r.communityHandler.CreateCommunity)
			communities.POST("/:id/review", r.communityHandler.ReviewCommunity)
			communities.POST("/:id/membership-requests", r.communityHandler.RequestMembership)
			communities.POST("/:id/invitations", r.communityHandler.Invite)
			communities.DELETE("/:id/members/:userId", r.communityHandler.RemoveMember)
		}

		rest.POST("/membership-requests/:id/decision", r.communityHandler.DecideRequest)
		rest.POST("/invitations/:id/response", r.communityHandler.RespondInvitation)

		moderation := rest.Group("/moderation")
		{
			moderation.POST("/logs", r.moderationHandler.CreateLog)
			moderation.GET("/logs", r.moderationHandler.ListLogs)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
