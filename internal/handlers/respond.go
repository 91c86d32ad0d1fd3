package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ran-crm/crm/db"
	"github.com/ran-crm/crm/internal/services"
	"github.com/ran-crm/crm/internal/utils"
)

func service() *services.Service {
	return services.New(db.DB)
}

// currentActor writes a 401 and returns false when no user is on the context.
func currentActor(ctx *gin.Context) (services.Actor, bool) {
	user, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return services.Actor{}, false
	}

	return services.Actor{ID: user.ID, Email: user.Email, Role: user.Role}, true
}

func respondError(ctx *gin.Context, err error, resource string) {
	switch {
	case services.IsValidation(err), errors.Is(err, services.ErrSelfDelete):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: Can only modify own " + strings.ToLower(resource) + "s"})
	case errors.Is(err, services.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": resource + " not found"})
	case errors.Is(err, services.ErrPhoneConflict),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrDuplicateCall):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		status, message := utils.ClassifyDBError(err, resource)
		ctx.JSON(status, gin.H{"error": message})
	}
}
