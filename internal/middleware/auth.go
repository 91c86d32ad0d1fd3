package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ran-crm/crm/internal/auth"
	"github.com/ran-crm/crm/internal/types"
)

type AuthenticatedUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u AuthenticatedUser) IsAdmin() bool {
	return u.Role == types.RoleAdmin
}

// AuthMiddleware trusts the signed claims; it does not reload the user row.
func AuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")

		if authHeader == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)

		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		authenticate(ctx, strings.TrimSpace(parts[1]))
	}
}

// WebSocketAuthMiddleware also accepts ?token= since browsers cannot set
// headers on a WebSocket upgrade.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	header := AuthMiddleware()

	return func(ctx *gin.Context) {
		if token := ctx.Query("token"); token != "" && ctx.GetHeader("Authorization") == "" {
			authenticate(ctx, token)
			return
		}

		header(ctx)
	}
}

func AdminMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		value, exists := ctx.Get(types.ContextUserKey)
		user, ok := value.(AuthenticatedUser)

		if !exists || !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		if !user.IsAdmin() {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: Admin only"})
			return
		}

		ctx.Next()
	}
}

func authenticate(ctx *gin.Context, tokenString string) {
	claims, err := auth.VerifyJWT(tokenString)

	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	if claims.ID == 0 {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token claims"})
		return
	}

	ctx.Set(types.ContextUserKey, AuthenticatedUser{
		ID:    claims.ID,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  claims.Role,
	})
	ctx.Next()
}
