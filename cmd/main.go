package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notewiz-notes/notewiz/broker"
	"notewiz-notes/notewiz/config"
	"notewiz-notes/notewiz/database"
	"notewiz-notes/notewiz/middleware"
	"notewiz-notes/notewiz/routes"
	"notewiz-notes/notewiz/services"
	"notewiz-notes/notewiz/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := database.Setup(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	metrics := services.NewHubMetrics()
	registry := services.NewGroupRegistry(metrics)
	fanout := services.NewNotificationFanout(registry)

	// NATS is optional; without it notifications fan out in-process only
	var publisher services.NotificationPublisher
	nc, err := broker.Connect(cfg.NatsURL)
	if err != nil {
		log.Warn().Err(err).Str("url", cfg.NatsURL).Msg("Failed to connect to NATS, notifications will be delivered in-process")
	} else {
		defer nc.Drain()
		if _, err := broker.StartNotificationConsumer(nc, fanout.Deliver); err != nil {
			log.Warn().Err(err).Msg("Failed to subscribe to notification events, delivering in-process")
		} else {
			publisher = broker.NewProducer(nc)
		}
	}

	notificationService := services.NewNotificationService(fanout, publisher)
	taskService := services.NewTaskService(notificationService)
	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpirationHours)
	userService := services.UserServiceInstance

	webSocketService := services.NewWebSocketService(services.WebSocketConfig{
		Registry:      registry,
		Metrics:       metrics,
		Notifications: notificationService,
		Users:         userService,
		DB:            db,
		QueueSize:     cfg.WSSendQueueSize,
	})
	defer webSocketService.Stop()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.CORSMiddleware(cfg.AllowedOrigins))

	routes.RegisterHealthRoutes(router, db, metrics)
	routes.RegisterAuthRoutes(router, db, authService, userService)
	routes.RegisterWebSocketRoutes(router, authService, webSocketService)

	api := router.Group("/api/v1", middleware.AuthMiddleware(authService))
	routes.RegisterUserRoutes(api, db, userService)
	routes.RegisterTaskRoutes(api, db, taskService)
	routes.RegisterNotificationRoutes(api, db, notificationService)

	server := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.AppPort).Bool("nats", publisher != nil).Msg("API server is running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// close hub sockets first so Shutdown is not held open by upgraded connections
	webSocketService.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}
