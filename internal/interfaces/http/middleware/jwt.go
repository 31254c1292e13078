package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/domain/identity"
	"github.com/agrocredit/backend/internal/infrastructure/auth"
	"github.com/agrocredit/backend/internal/infrastructure/logger"
	"github.com/agrocredit/backend/internal/interfaces/http/dto"
)

// ActorKey holds the identity.Actor of an authenticated request
const ActorKey = "actor"

const bearerPrefix = "Bearer "

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// JWTConfig configures Authenticate
type JWTConfig struct {
	Validator TokenValidator
	// SkipPaths are served without a token
	SkipPaths []string
	Logger    *zap.Logger
}

// Authenticate validates the bearer token and stores the caller as an
// identity.Actor. The actor is built once here and handed to services
// explicitly by the handlers.
func Authenticate(cfg JWTConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) || strings.TrimPrefix(header, bearerPrefix) == "" {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Missing or malformed authorization header")
			return
		}

		claims, err := cfg.Validator.ValidateAccessToken(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			log.Warn("Token rejected", zap.Error(err), zap.String("path", c.Request.URL.Path))
			if errors.Is(err, auth.ErrExpiredToken) {
				abortUnauthorized(c, dto.ErrCodeTokenExpired, "Token has expired")
				return
			}
			abortUnauthorized(c, dto.ErrCodeTokenInvalid, "Invalid token")
			return
		}

		actor, err := claims.Actor()
		if err != nil {
			log.Warn("Token claims rejected", zap.Error(err), zap.String("user_id", claims.UserID))
			abortUnauthorized(c, dto.ErrCodeTokenInvalid, "Invalid token claims")
			return
		}

		c.Set(ActorKey, actor)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), actor.UserID.String(), actor.Role.String()))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.ErrorInfo{
		Code:      code,
		Message:   message,
		RequestID: GetRequestID(c),
	}))
}

// GetActor returns the caller stored by Authenticate
func GetActor(c *gin.Context) (identity.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return identity.Actor{}, false
	}
	actor, ok := v.(identity.Actor)
	return actor, ok
}
