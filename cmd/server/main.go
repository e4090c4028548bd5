package main

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/baberlabs/chatr-sub000/internal/config"
	"github.com/baberlabs/chatr-sub000/internal/database"
	"github.com/baberlabs/chatr-sub000/internal/routes"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var zl zerolog.Logger
	if cfg.IsDevelopment() {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	} else {
		zl = zerolog.New(os.Stdout).
			With().Timestamp().Logger()
	}

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		log.Fatal("DB_URL is required")
	}
	if err := database.ConnectDB(cfg.DBUrl); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB()
	zl.Info().Msg("connected to PostgreSQL")

	// 3. Setup Fiber
	app := fiber.New()

	// Middleware
	if cfg.AllowedOrigins != "" {
		app.Use(cors.New(cors.Config{AllowOrigins: cfg.AllowedOrigins}))
	} else {
		app.Use(cors.New())
	}
	app.Use(logger.New())
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	routes.RegisterRoutes(app, cfg, database.DB, zl)

	// 4. Start Server
	zl.Info().Str("port", cfg.Port).Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		zl.Fatal().Err(err).Msg("server failed to start")
	}
}
