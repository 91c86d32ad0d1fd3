package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/ran-crm/crm/internal/middleware"
	"github.com/ran-crm/crm/internal/types"
)

var ErrNotAuthenticated = errors.New("User not authenticated")

// GetCurrentUser returns the identity the auth middleware put on the request.
func GetCurrentUser(ctx *gin.Context) (middleware.AuthenticatedUser, error) {
	value, exists := ctx.Get(types.ContextUserKey)
	if !exists {
		return middleware.AuthenticatedUser{}, ErrNotAuthenticated
	}

	if user, ok := value.(middleware.AuthenticatedUser); ok && user.ID != 0 {
		return user, nil
	}

	return middleware.AuthenticatedUser{}, ErrNotAuthenticated
}
