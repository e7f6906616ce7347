package main

// @title           Civic Realtime API
// @version         1.0
// @description     Presence, rooms and notification fan-out for the civic platform
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"civic-realtime/internal/api/routes"
	"civic-realtime/internal/auth"
	"civic-realtime/internal/config"
	"civic-realtime/internal/database"
	"civic-realtime/internal/gateway"
	"civic-realtime/internal/repository"
	"civic-realtime/internal/services"
	"civic-realtime/internal/websocket"
	"civic-realtime/pkg/logger"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/samber/lo"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logr := logger.New(cfg.Log.Level, cfg.Log.Format)
	logr.Info("Starting civic realtime server")

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Error("Failed to connect to database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db, logr); err != nil {
		logr.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	hub := websocket.NewHub(nil, websocket.OptionsFromConfig(cfg.WebSocket, cfg.Server.AllowedOrigins), logr)

	// Redis is optional: it backs the presence mirror and the rate limiters.
	var limiter services.RateLimiter
	var redisClient *database.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = database.NewRedisConnection(cfg.Redis, logr)
		if err != nil {
			logr.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		limiter = services.NewRedisService(redisClient, logr)
		hub.SetPresenceStore(repository.NewPresenceRepository(redisClient.GetClient()))
	} else {
		logr.Warn("Redis disabled, rate limiting and presence mirror are off")
	}

	communities := repository.NewCommunityRepository(db)
	hub.SetRoomResolver(func(ctx context.Context, userID string) ([]websocket.Room, error) {
		ids, err := communities.ApprovedCommunityIDsForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return lo.Map(ids, func(id string, _ int) websocket.Room { return websocket.CommunityRoom(id) }), nil
	})

	svc := services.New(db, hub, logr)
	gw := gateway.New(hub, svc, logr)
	if limiter != nil {
		gw.WithRateLimit(limiter, cfg.RateLimit.SocketActions, cfg.RateLimit.SocketWindow)
	}
	hub.SetInboundHandler(gw)

	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	verifier := auth.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	router := routes.NewRouter(cfg, hub, svc, verifier, limiter, logr)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logr.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// The server stops accepting first, then the hub closes every socket.
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-and-hub": func(ctx context.Context) error {
				logr.Info("Server shutting down...")
				err := server.Shutdown(ctx)
				stopHub()
				select {
				case <-hub.Done():
				case <-ctx.Done():
					err = errors.Join(err, ctx.Err())
				}
				return err
			},
			"storage": func(ctx context.Context) error {
				select {
				case <-hub.Done():
				case <-ctx.Done():
				}
				var errs []error
				if redisClient != nil {
					errs = append(errs, redisClient.Close())
				}
				errs = append(errs, database.Close(db))
				return errors.Join(errs...)
			},
		},
	)

	exitCode := <-wait
	logr.Info("Server stopped", "exitCode", exitCode)
	os.Exit(exitCode)
}
