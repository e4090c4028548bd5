package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/baberlabs/chatr-sub000/internal/config"
	"github.com/baberlabs/chatr-sub000/internal/handlers"
	"github.com/baberlabs/chatr-sub000/internal/middleware"
	"github.com/baberlabs/chatr-sub000/internal/realtime"
	"github.com/baberlabs/chatr-sub000/internal/repository"
	"github.com/baberlabs/chatr-sub000/internal/services"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, logger zerolog.Logger) {
	if err := registerDocsRoutes(app, cfg); err != nil {
		logger.Warn().Err(err).Msg("api docs disabled")
	}

	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	var storageService services.StorageService
	if cfg.SupabaseURL != "" && cfg.SupabaseBucket != "" && cfg.SupabaseServiceKey != "" {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	chatService := services.NewChatService(db, chatRepo, messageRepo, userRepo, storageService)

	presence := realtime.NewPresenceRegistry()
	rooms := realtime.NewRoomRegistry()
	dispatcher := realtime.NewDispatcher(presence, rooms, logger.With().Str("component", "realtime").Logger())
	authenticator := realtime.NewAuthenticator(cfg.JWTSecret, userRepo)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	userHandler := handlers.NewUserHandler(userRepo, storageService)
	chatHandler := handlers.NewChatHandler(chatService)
	realtimeHandler := handlers.NewRealtimeHandler(dispatcher, authenticator)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	users := authProtected.Group("/users")
	users.Get("", userHandler.ListUsers)
	users.Put("/profile", userHandler.UpdateProfile)
	users.Delete("/profile", userHandler.DeleteAccount)

	chats := authProtected.Group("/chats")
	chats.Get("", chatHandler.ListChats)
	chats.Post("", chatHandler.CreateChat)
	chats.Get("/:id/messages", chatHandler.GetMessages)
	chats.Post("/:id/messages", chatHandler.SendMessage)

	authProtected.Delete("/messages/:id", chatHandler.DeleteMessage)

	api.Use("/v1/ws", realtimeHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(realtimeHandler.HandleWebSocket))
}
