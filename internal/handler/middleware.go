package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	userIDContextKey        = "user_id"
	sourceServiceContextKey = "source_service"
	interServiceTokenHeader = "X-Internal-Service-Token"
)

var (
	errTokenMissing = errors.New("token missing")
	errTokenInvalid = errors.New("token invalid")
	errTokenExpired = errors.New("token expired")
)

// GinZapLogger логирует запросы через zap. /health и /metrics не логируются.
func GinZapLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		if rawQuery := c.Request.URL.RawQuery; rawQuery != "" {
			path = path + "?" + rawQuery
		}
		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("request_id", requestID),
		}

		if len(c.Errors) > 0 {
			for _, ginErr := range c.Errors.ByType(gin.ErrorTypeAny) {
				log.Error("Request error", append(fields, zap.Error(ginErr.Err))...)
			}
			return
		}
		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("Server error", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("Client error", fields...)
		default:
			log.Info("Request completed", fields...)
		}
	}
}

// verifyHS256 проверяет подпись и срок действия токена и возвращает subject.
func verifyHS256(tokenString, secret string) (string, error) {
	if tokenString == "" {
		return "", errTokenMissing
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errTokenExpired
		}
		return "", fmt.Errorf("%w: %v", errTokenInvalid, err)
	}
	if !token.Valid {
		return "", errTokenInvalid
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: subject missing", errTokenInvalid)
	}
	return claims.Subject, nil
}

// UserAuthMiddleware проверяет Bearer JWT пользователя; sub - ID пользователя.
func UserAuthMiddleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "Authorization header missing or malformed")
			return
		}

		userID, err := verifyHS256(parts[1], secret)
		if err != nil {
			logger.Warn("User token verification failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("tokenSnippet", tokenSnippet(parts[1])),
				zap.Error(err))
			if errors.Is(err, errTokenExpired) {
				abortUnauthorized(c, "Token has expired")
				return
			}
			abortUnauthorized(c, "Token is invalid")
			return
		}

		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

// InterServiceAuthMiddleware проверяет межсервисный JWT в заголовке X-Internal-Service-Token.
func InterServiceAuthMiddleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.With(zap.String("path", c.Request.URL.Path))
		tokenString := c.GetHeader(interServiceTokenHeader)
		if tokenString == "" {
			log.Warn("X-Internal-Service-Token header missing")
			abortUnauthorized(c, "Unauthorized: Missing inter-service token")
			return
		}

		source, err := verifyHS256(tokenString, secret)
		if err != nil {
			log.Warn("Inter-service token verification failed", zap.Error(err), zap.String("tokenSnippet", tokenSnippet(tokenString)))
			if errors.Is(err, errTokenExpired) {
				abortUnauthorized(c, "Unauthorized: Inter-service token expired")
				return
			}
			abortUnauthorized(c, "Unauthorized: Invalid inter-service token")
			return
		}

		c.Set(sourceServiceContextKey, source)
		log.Debug("Inter-service request authorized", zap.String("sourceService", source))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, apiResponse{Success: false, Message: message})
}

// tokenSnippet возвращает безопасную для логгирования часть токена.
func tokenSnippet(tokenString string) string {
	limit := 15
	if len(tokenString) > limit {
		return tokenString[:limit] + "..."
	}
	return tokenString
}
