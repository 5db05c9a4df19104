package api

import (
	"github.com/gin-gonic/gin"

	"github.com/gambitplay/backend/internal/api/handlers"
	"github.com/gambitplay/backend/internal/config"
	"github.com/gambitplay/backend/internal/persistence"
	"github.com/gambitplay/backend/internal/session"
	"github.com/gambitplay/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, svc *persistence.Service, manager *session.Manager, cfg *config.Config) {
	// CORS middleware for the web client
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	play := ws.NewHandler(manager, svc, func(token string) (string, error) {
		return handlers.ParseToken(token, cfg.JWTSecret)
	})

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		auth := v1.Group("/auth")
		{
			auth.POST("/register", handlers.Register(svc, cfg))
			auth.POST("/login", handlers.Login(svc, cfg))
		}

		matches := v1.Group("/matches")
		{
			matches.POST("", handlers.AuthRequired(cfg), handlers.CreateMatch(svc, cfg))
			matches.POST("/:id/join", handlers.AuthRequired(cfg), handlers.JoinMatch(svc, cfg))
			matches.GET("/:id", handlers.AuthRequired(cfg), handlers.GetMatch(svc, cfg))
			// Socket auth happens after the upgrade so failures can close
			// with a proper status code.
			matches.GET("/:id/play", play.HandlePlay)
		}
	}
}
