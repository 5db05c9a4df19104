package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gambitplay/backend/internal/config"
	"github.com/gambitplay/backend/internal/logging"
	"github.com/gambitplay/backend/internal/models"
	"github.com/gambitplay/backend/internal/persistence"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new player account and issues a session token
func Register(svc *persistence.Service, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || len(req.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username required and password must be at least 8 characters"})
			return
		}

		if _, err := svc.GetUserByUsername(c.Request.Context(), req.Username); err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		user := &models.User{
			ID:           uuid.NewString(),
			Username:     req.Username,
			PasswordHash: string(hash),
			Rating:       cfg.DefaultRating,
		}
		if err := svc.CreateUser(c.Request.Context(), user); err != nil {
			logging.L().Error("user_create_failed", zap.String("username", req.Username), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		token, err := IssueToken(user.ID, cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":       user.ID,
			"username": user.Username,
			"rating":   user.Rating,
			"token":    token,
		})
	}
}

// Login verifies credentials and issues a session token
func Login(svc *persistence.Service, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
			return
		}

		user, err := svc.GetUserByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := IssueToken(user.ID, cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":       user.ID,
			"username": user.Username,
			"rating":   user.Rating,
			"token":    token,
		})
	}
}

// AuthRequired extracts and validates the bearer token, storing the user id
// in the request context.
func AuthRequired(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		userID, err := ParseToken(strings.TrimPrefix(header, prefix), cfg.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}
