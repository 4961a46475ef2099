package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messenger-service/internal/auth"
	"messenger-service/internal/db"
	"messenger-service/internal/handlers"
	"messenger-service/internal/middleware"
	"messenger-service/internal/observability"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

func main() {
	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := observability.SetupTracing(context.Background(),
		getEnv("OTLP_ENDPOINT", ""), getEnv("SERVICE_NAME", "messenger-service"))
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	amqpURL := getEnv("AMQP_URL", "")
	auditPublisher := rabbitmq.NewPublisher(amqpURL, getEnv("AMQP_EXCHANGE", "messenger.events"))
	defer auditPublisher.Close()

	audit := telemetry.NewAuditEmitter(auditPublisher,
		getEnv("AUDIT_ROUTING_KEY", "audit.messenger"),
		getEnv("SERVICE_NAME", "messenger-service"),
		getEnv("ENVIRONMENT", "development"))

	if amqpURL != "" {
		eventsPublisher, err := observability.NewAMQPPublisher(amqpURL, getEnv("AMQP_EVENTS_EXCHANGE", "messenger.ws"))
		if err != nil {
			log.Printf("ws event publisher disabled: %v", err)
		} else {
			observability.SetPublisher(eventsPublisher)
			defer eventsPublisher.Close()
		}
	}

	tokenTTL, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		log.Fatalf("invalid JWT_TTL: %v", err)
	}
	tokens := auth.NewManager(getEnv("JWT_SECRET", "dev-secret"), tokenTTL)

	workerID, err := strconv.ParseUint(getEnv("SNOWFLAKE_WORKER_ID", "1"), 10, 32)
	if err != nil {
		log.Fatalf("invalid SNOWFLAKE_WORKER_ID: %v", err)
	}

	accountRepo := repositories.NewAccountRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo, err := repositories.NewMessageRepo(database, uint32(workerID))
	if err != nil {
		log.Fatalf("failed to build message repo: %v", err)
	}
	friendRepo := repositories.NewFriendRepo(database)

	hub := ws.NewHub()

	legacyRoomID, err := strconv.ParseInt(getEnv("LEGACY_ROOM_ID", "0"), 10, 64)
	if err != nil {
		log.Fatalf("invalid LEGACY_ROOM_ID: %v", err)
	}

	authHandler := handlers.NewAuthHandler(accountRepo, tokens, audit)
	conversationHandler := handlers.NewConversationHandler(conversationRepo, messageRepo, accountRepo, audit)
	messageHandler := handlers.NewMessageHandler(conversationRepo, messageRepo, audit)
	friendHandler := handlers.NewFriendHandler(friendRepo, accountRepo, audit)
	liveHandler := ws.NewLiveHandler(hub, tokens, messageRepo, legacyRoomID)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(getEnv("SERVICE_NAME", "messenger-service")))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(tokens)

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)
	router.GET("/auth/me", authMiddleware, authHandler.Me)

	router.GET("/conversations", authMiddleware, conversationHandler.List)
	router.POST("/conversations", authMiddleware, conversationHandler.Create)
	router.GET("/conversations/:conversation_id/messages", authMiddleware, messageHandler.Fetch)
	router.POST("/conversations/:conversation_id/messages", authMiddleware, messageHandler.Send)
	router.PATCH("/conversations/:conversation_id/read", authMiddleware, conversationHandler.MarkRead)
	router.POST("/conversations/:conversation_id/members", authMiddleware, conversationHandler.AddMembers)
	router.PATCH("/conversations/:conversation_id/name", authMiddleware, conversationHandler.Rename)
	router.DELETE("/conversations/:conversation_id/leave", authMiddleware, conversationHandler.Leave)

	router.GET("/friends", authMiddleware, friendHandler.List)
	router.POST("/friends/request", authMiddleware, friendHandler.Request)
	router.POST("/friends/:request_id/accept", authMiddleware, friendHandler.Accept)
	router.POST("/friends/:request_id/reject", authMiddleware, friendHandler.Reject)

	router.GET("/ws", liveHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, getEnv("DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
