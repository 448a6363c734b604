package main

import (
	"log"

	"arcadia/config"
	"arcadia/handlers"
	"arcadia/middleware"
	"arcadia/models"
	"arcadia/routes"
	"arcadia/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present; real environments set variables directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Board{},
		&models.Session{},
		&models.SessionPlayer{},
		&models.SessionEvent{},
		&models.Achievement{},
		&models.Speedrun{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize services
	authService := services.NewAuthService(db, cfg.JWTSecret)
	boardService := services.NewBoardService(db)
	sessionService := services.NewSessionService(db, redisClient)
	achievementService := services.NewAchievementService(db)
	speedrunService := services.NewSpeedrunService(db, redisClient)

	// Initialize WebSocket hub
	hub := services.NewHub(sessionService)
	go hub.Run()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	boardHandler := handlers.NewBoardHandler(boardService, achievementService)
	sessionHandler := handlers.NewSessionHandler(sessionService, achievementService, hub)
	achievementHandler := handlers.NewAchievementHandler(achievementService)
	speedrunHandler := handlers.NewSpeedrunHandler(speedrunService, achievementService)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, boardHandler, sessionHandler, achievementHandler, speedrunHandler, hub, sessionService, redisClient, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.BindAddress + ":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
