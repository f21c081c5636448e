package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"eventfest-backend/internal/config"
	"eventfest-backend/internal/handlers"
	"eventfest-backend/internal/repositories"
	"eventfest-backend/internal/services"
	"eventfest-backend/pkg/database"
	"eventfest-backend/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	// Load configuration
	cfg, err := config.NewConfigFromEnv()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.LogLevel, cfg.Env)

	// Initialize database
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}

	// Run migrations
	if err := repositories.AutoMigrate(db); err != nil {
		log.Fatalf("Migration error: %v", err)
	}

	// Initialize repositories
	repo := repositories.NewRepository(db)

	// Initialize services
	cascadeSvc := services.NewCascadeService(repo.Cascades, repo.Events, repo.Registrations)
	eventSvc := services.NewEventService(repo.Events, repo.Registrations, cascadeSvc)
	ticketSvc := services.NewTicketService(repo.Tickets, repo.Registrations, repo.Events)
	regSvc := services.NewRegistrationService(
		repo.Events,
		repo.Registrations,
		repo.Users,
		eventSvc,
		ticketSvc,
		cascadeSvc,
		services.NewLogNotifier(cfg.QRDir),
	)

	// Initialize handlers
	handler := handlers.NewHandler(eventSvc, regSvc, ticketSvc, cascadeSvc, cfg)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Event Fest API",
		ErrorHandler: handlers.ErrorHandler,
	})

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Create upload directories
	if err := os.MkdirAll(cfg.QRDir, 0755); err != nil {
		log.Fatalf("Failed to create QR directory: %v", err)
	}
	if err := os.MkdirAll(cfg.ProofDir, 0755); err != nil {
		log.Fatalf("Failed to create payment proof directory: %v", err)
	}

	// Static file serving
	app.Static("/qrcodes", cfg.QRDir)
	app.Static("/payment-proofs", cfg.ProofDir)

	// Register routes
	api := app.Group("/api/v1")
	handler.RegisterRoutes(api, cfg)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Printf("🚀 Server starting on %s", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped gracefully")
}
