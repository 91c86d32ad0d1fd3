package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ran-crm/crm/internal/services"
	"github.com/ran-crm/crm/internal/types"
	"github.com/ran-crm/crm/internal/utils"
)

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

func ListUsers(ctx *gin.Context) {
	users, err := service().ListUsers(ctx.Request.Context())

	if err != nil {
		respondError(ctx, err, "User")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"users": types.NewUserResponses(users)})
}

func CreateUser(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req CreateUserRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	user, err := service().CreateUser(ctx.Request.Context(), &actor, services.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})

	if err != nil {
		respondError(ctx, err, "User")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": types.NewUserResponse(*user)})
}

func DeleteUser(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	id, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := service().DeleteUser(ctx.Request.Context(), actor, id); err != nil {
		respondError(ctx, err, "User")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func GetUserContacts(ctx *gin.Context) {
	id, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := service()

	user, err := svc.GetUser(ctx.Request.Context(), id)

	if err != nil {
		respondError(ctx, err, "User")
		return
	}

	contacts, err := svc.ContactsByCreator(ctx.Request.Context(), id)

	if err != nil {
		respondError(ctx, err, "Contact")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": types.NewUserResponse(*user), "contacts": contacts})
}

func GetUserCalls(ctx *gin.Context) {
	id, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, err := utils.GetLimit(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := service()

	user, err := svc.GetUser(ctx.Request.Context(), id)

	if err != nil {
		respondError(ctx, err, "User")
		return
	}

	calls, err := svc.ListCalls(ctx.Request.Context(), services.CallFilter{UserID: &id, Limit: limit})

	if err != nil {
		respondError(ctx, err, "Call")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": types.NewUserResponse(*user), "calls": calls})
}

func GetUserStats(ctx *gin.Context) {
	id, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, stats, err := service().UserStats(ctx.Request.Context(), id)

	if err != nil {
		respondError(ctx, err, "User")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": types.NewUserResponse(*user), "stats": stats})
}

func FlushUserData(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	id, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := service().FlushUserData(ctx.Request.Context(), actor, id)

	if err != nil {
		respondError(ctx, err, "User")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":          "User data flushed successfully",
		"calls_deleted":    result.CallsDeleted,
		"contacts_deleted": result.ContactsDeleted,
	})
}

func ListAuditLogs(ctx *gin.Context) {
	limit, err := utils.GetLimit(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logs, err := service().ListAuditLogs(ctx.Request.Context(), limit)

	if err != nil {
		respondError(ctx, err, "Audit log")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"audit_logs": logs})
}
