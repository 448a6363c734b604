package routes

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"arcadia/handlers"
	"arcadia/middleware"
	"arcadia/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	boardHandler *handlers.BoardHandler,
	sessionHandler *handlers.SessionHandler,
	achievementHandler *handlers.AchievementHandler,
	speedrunHandler *handlers.SpeedrunHandler,
	hub *services.Hub,
	sessionService *services.SessionService,
	rdb *redis.Client,
	jwtSecret string,
) {
	// API routes
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Public discovery routes
		api.GET("/boards", boardHandler.GetPublicBoards)
		api.GET("/boards/:id/leaderboard", speedrunHandler.GetLeaderboard)

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			// User profile
			protected.GET("/auth/profile", authHandler.GetProfile)

			// Board routes
			boards := protected.Group("/boards")
			{
				boards.POST("", middleware.RateLimit(rdb, 30, time.Minute), boardHandler.CreateBoard)
				boards.GET("/mine", boardHandler.GetUserBoards)
				boards.GET("/:id", boardHandler.GetBoardByID)
				boards.PUT("/:id", boardHandler.UpdateBoard)
				boards.POST("/:id/publish", boardHandler.PublishBoard)
				boards.POST("/:id/clone", boardHandler.CloneBoard)
				boards.POST("/:id/archive", boardHandler.ArchiveBoard)
				boards.POST("/:id/vote", middleware.RateLimit(rdb, 60, time.Minute), boardHandler.VoteBoard)
				boards.POST("/:id/bookmark", middleware.RateLimit(rdb, 60, time.Minute), boardHandler.BookmarkBoard)
			}

			// Session routes
			sessions := protected.Group("/sessions")
			{
				sessions.POST("", middleware.RateLimit(rdb, 30, time.Minute), sessionHandler.CreateSession)
				sessions.GET("/:code", sessionHandler.GetSession)
				sessions.GET("/:code/state", sessionHandler.GetSessionState)
				sessions.GET("/:code/events", sessionHandler.GetEvents)
				sessions.POST("/:code/join", sessionHandler.JoinSession)
				sessions.POST("/:code/leave", sessionHandler.LeaveSession)
				sessions.POST("/:code/start", sessionHandler.StartSession)
				sessions.POST("/:code/pause", sessionHandler.PauseSession)
				sessions.POST("/:code/resume", sessionHandler.ResumeSession)
				sessions.POST("/:code/cancel", sessionHandler.CancelSession)
				sessions.POST("/:code/mark", middleware.RateLimit(rdb, 120, time.Minute), sessionHandler.MarkCell)
				sessions.POST("/:code/unmark", middleware.RateLimit(rdb, 120, time.Minute), sessionHandler.UnmarkCell)
			}

			// Achievement routes
			achievements := protected.Group("/achievements")
			{
				achievements.GET("", achievementHandler.GetMyAchievements)
				achievements.GET("/catalogue", achievementHandler.GetCatalogue)
			}

			// Speedrun routes
			speedruns := protected.Group("/speedruns")
			{
				speedruns.POST("", middleware.RateLimit(rdb, 30, time.Minute), speedrunHandler.SubmitSpeedrun)
				speedruns.GET("/mine", speedrunHandler.GetMySpeedruns)
				speedruns.POST("/:id/verify", speedrunHandler.VerifySpeedrun)
			}
		}
	}

	// WebSocket endpoint for real-time session updates
	router.GET("/ws/:code/:userID", func(c *gin.Context) {
		code := strings.ToLower(c.Param("code"))
		userIDStr := c.Param("userID")

		var userID uint
		if _, err := fmt.Sscanf(userIDStr, "%d", &userID); err != nil {
			log.Printf("Failed to parse user ID '%s' for session %s: %v", userIDStr, code, err)
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid user ID", "code": "bad_request"})
			return
		}

		displayName, err := validateSessionAccess(sessionService, code, userID)
		if err != nil {
			log.Printf("Session access validation failed for session %s, user %d: %v", code, userID, err)
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "not a player in this session", "code": "unauthorized"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for session %s, user %d: %v", code, userID, err)
			return
		}

		log.Printf("WebSocket connection established for session %s, user %d (%s)", code, userID, displayName)

		client := hub.RegisterClient(conn, code, userID, displayName)
		hub.SendStateSync(client)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// validateSessionAccess checks that the user holds a seat in the session
// before letting them onto the realtime channel.
func validateSessionAccess(sessionService *services.SessionService, code string, userID uint) (string, error) {
	session, err := sessionService.GetSessionByCode(code)
	if err != nil {
		return "", err
	}

	for _, player := range session.Players {
		if player.UserID == userID {
			return player.DisplayName, nil
		}
	}
	return "", fmt.Errorf("user %d not found in session %s", userID, code)
}
