package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/platform/ctxutil"
	"github.com/yungbote/estrella-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	return &AuthMiddleware{log: middlewareLogger, authService: authService}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"message": message, "code": code},
	})
}

// RequireAuth accepts user, admin and guest tokens. Every token carries a
// session id; that is what the cart and checkout key on.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString)
		if err != nil {
			am.log.Debug("Rejected token", "error", err)
			abort(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		c.Request = c.Request.WithContext(ctx)
		rd := ctxutil.GetRequestData(ctx)
		if rd == nil || rd.SessionID == uuid.Nil {
			abort(c, http.StatusForbidden, "forbidden", "forbidden")
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches request data when a valid token is present and
// otherwise lets the request through anonymous.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := extractTokenFromAll(c); tokenString != "" {
			if ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString); err == nil {
				c.Request = c.Request.WithContext(ctx)
			}
		}
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...ctxutil.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		for _, r := range roles {
			if rd.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "forbidden", "forbidden")
	}
}

// RequireIntakeToken guards the intake endpoints called by other services.
// An empty token closes them entirely.
func RequireIntakeToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := strings.TrimSpace(c.GetHeader("X-Intake-Token"))
		if got == "" {
			got = bearer(c.GetHeader("Authorization"))
		}
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			abort(c, http.StatusUnauthorized, "unauthorized", "invalid intake token")
			return
		}
		c.Next()
	}
}

func bearer(authHeader string) string {
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}

func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	return bearer(c.GetHeader("Authorization"))
}
