package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ran-crm/crm/internal/auth"
	"github.com/ran-crm/crm/internal/services"
	"github.com/ran-crm/crm/internal/types"
	"github.com/ran-crm/crm/internal/utils"
)

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func LoginUser(ctx *gin.Context) {
	var req LoginUserRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	user, err := service().Authenticate(ctx.Request.Context(), req.Email, req.Password)

	if err != nil {
		respondError(ctx, err, "User")
		return
	}

	token, err := auth.GenerateJWT(*user)

	if err != nil {
		log.Printf("Failed to generate JWT: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  types.NewUserResponse(*user),
	})
}

// Signup always creates a regular user. The route is only mounted when
// SIGNUP_ENABLED is set.
func Signup(ctx *gin.Context) {
	var req SignupRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	user, err := service().CreateUser(ctx.Request.Context(), nil, services.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     types.RoleUser,
	})

	if err != nil {
		respondError(ctx, err, "User")
		return
	}

	token, err := auth.GenerateJWT(*user)

	if err != nil {
		log.Printf("Failed to generate JWT: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  types.NewUserResponse(*user),
	})
}

func Me(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": currentUser})
}
