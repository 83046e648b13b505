package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stipe44/murmur/internal/config"
	"github.com/stipe44/murmur/internal/database"
	"github.com/stipe44/murmur/internal/metrics"
	"github.com/stipe44/murmur/internal/repository"
	memoryrepo "github.com/stipe44/murmur/internal/repository/memory"
	postgresrepo "github.com/stipe44/murmur/internal/repository/postgres"
	"github.com/stipe44/murmur/internal/service"
	"github.com/stipe44/murmur/internal/transport/http/handlers"
	"github.com/stipe44/murmur/internal/transport/http/middleware"
	"github.com/stipe44/murmur/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	// Repositories
	var (
		userRepo    repository.UserRepository
		convRepo    repository.ConversationRepository
		msgRepo     repository.MessageRepository
		receiptRepo repository.ReceiptRepository
	)

	switch cfg.Store {
	case "memory":
		store := memoryrepo.NewStore()
		userRepo = store.Users()
		convRepo = store.Conversations()
		msgRepo = store.Messages()
		receiptRepo = store.Receipts()
		logger.Info("using in-memory store")
	default:
		pool, err := database.Connect(cfg)
		if err != nil {
			logger.Fatal("database connect", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("connected to database", zap.String("host", cfg.DBHost))

		userRepo = postgresrepo.NewUserRepo(pool)
		convRepo = postgresrepo.NewConversationRepo(pool)
		msgRepo = postgresrepo.NewMessageRepo(pool, logger)
		receiptRepo = postgresrepo.NewReceiptRepo(pool, logger)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	chatService, err := service.NewChatService(convRepo, msgRepo, receiptRepo, userRepo, ws.NewHubBridge(hub), logger)
	if err != nil {
		logger.Fatal("chat service", zap.Error(err))
	}

	hub.SetOnDisconnect(func(userID uuid.UUID) {
		if err := authService.Seen(context.Background(), userID); err != nil {
			logger.Warn("update last seen", zap.String("user_id", userID.String()), zap.Error(err))
		}
	})

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(authService, chatService)
	chatHandler := handlers.NewChatHandler(chatService)

	// Auth middleware
	auth := middleware.Auth(cfg.JWTSecret)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Protected - Users
	mux.Handle("GET /api/v1/users/me", auth(http.HandlerFunc(userHandler.Profile)))
	mux.Handle("GET /api/v1/users/search/{term}", auth(http.HandlerFunc(userHandler.Search)))
	mux.Handle("POST /api/v1/users/me/avatar", auth(http.HandlerFunc(userHandler.SetAvatar)))
	mux.Handle("DELETE /api/v1/users/me/avatar", auth(http.HandlerFunc(userHandler.ClearAvatar)))

	// Protected - Conversations
	mux.Handle("POST /api/v1/conversations", auth(http.HandlerFunc(chatHandler.CreateConversation)))
	mux.Handle("GET /api/v1/conversations", auth(http.HandlerFunc(chatHandler.ListConversations)))
	mux.Handle("GET /api/v1/conversations/{id}", auth(http.HandlerFunc(chatHandler.OpenConversation)))
	mux.Handle("GET /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(chatHandler.ScrollBack)))
	mux.Handle("POST /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(chatHandler.SendMessage)))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.ServeWS(hub, cfg.JWTSecret))

	// Start server with CORS
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	logger.Info("starting server", zap.String("addr", addr))
	log.Fatal(http.ListenAndServe(addr, middleware.CORS(mux)))
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
