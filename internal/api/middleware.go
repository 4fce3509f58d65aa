package api

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rongwang/kasciraya-server/internal/models"
	"github.com/rongwang/kasciraya-server/internal/service"
	"github.com/rongwang/kasciraya-server/internal/utils"
)

// Context keys set by the middleware
const (
	ctxUser      = "user"
	ctxUserID    = "userId"
	ctxRequestID = "requestId"
)

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Status:  "error",
		Code:    "UNAUTHORIZED",
		Message: message,
	})
}

// AuthMiddleware returns a Gin middleware for authentication. Rejected tokens
// are answered with 401; failures while resolving the user surface as errors.
func AuthMiddleware(svc service.Service, logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the JWT token from the Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authentication required")
			return
		}

		// Check if the Authorization header starts with "Bearer "
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid token format")
			return
		}

		user, err := svc.Authenticate(c.Request.Context(), parts[1])
		if errors.Is(err, service.ErrUnauthenticated) {
			abortUnauthorized(c, "Invalid token")
			return
		}
		if err != nil {
			respondError(c, logger, err)
			c.Abort()
			return
		}

		// Set the acting user in the context
		c.Set(ctxUser, user)
		c.Set(ctxUserID, user.ID)
		c.Next()
	}
}

// RequireCapability rejects users whose role lacks the capability
func RequireCapability(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			abortUnauthorized(c, "Authentication required")
			return
		}
		if !user.Role.Can(capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Status:  "error",
				Code:    "FORBIDDEN",
				Message: "Your role does not allow " + string(capability),
			})
			return
		}
		c.Next()
	}
}

// APIKeyMiddleware guards machine-to-machine endpoints with a shared key
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader("X-API-Key")
		if apiKey == "" || subtle.ConstantTimeCompare([]byte(given), []byte(apiKey)) != 1 {
			abortUnauthorized(c, "Invalid API key")
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request, at a level matching the status class
func RequestLogger(logger *utils.Logger) gin.HandlerFunc {
	log := logger.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(ctxRequestID, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		log.Log(c.Request.Context(), level, "request",
			utils.FieldRequestID, requestID,
			utils.FieldMethod, c.Request.Method,
			utils.FieldPath, c.Request.URL.Path,
			utils.FieldStatus, status,
			utils.FieldDuration, time.Since(start).Milliseconds(),
			utils.FieldClientIP, c.ClientIP(),
		)
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
