package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ran-crm/crm/internal/services"
	"github.com/ran-crm/crm/internal/utils"
)

type CreateContactRequest struct {
	Name        string `json:"name" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
}

func ListContacts(ctx *gin.Context) {
	contacts, err := service().ListContacts(ctx.Request.Context())

	if err != nil {
		respondError(ctx, err, "Contact")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

func CreateContact(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req CreateContactRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Name and phone_number are required"})
		return
	}

	contact, created, err := service().CreateContact(ctx.Request.Context(), actor, services.ContactInput{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
	})

	if err != nil {
		respondError(ctx, err, "Contact")
		return
	}

	if !created {
		ctx.JSON(http.StatusOK, gin.H{"contact": contact, "created": false, "warning": services.ContactExistsWarning})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"contact": contact, "created": true})
}

func UpdateContact(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	id, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req services.ContactUpdate

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	contact, err := service().UpdateContact(ctx.Request.Context(), actor, id, req)

	if err != nil {
		respondError(ctx, err, "Contact")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"contact": contact})
}

func DeleteContact(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	id, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := service().DeleteContact(ctx.Request.Context(), actor, id); err != nil {
		respondError(ctx, err, "Contact")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Contact deleted successfully"})
}
