package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ran-crm/crm/internal/utils"
)

type syncContactsRequest struct {
	Contacts []json.RawMessage `json:"contacts"`
}

type syncCallsRequest struct {
	Calls []json.RawMessage `json:"calls"`
}

func PullContacts(ctx *gin.Context) {
	since, err := utils.GetSince(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	serverTime := time.Now().UTC()
	contacts, err := service().ContactsSince(ctx.Request.Context(), since)

	if err != nil {
		respondError(ctx, err, "Contact")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"contacts": contacts, "server_time": serverTime})
}

func PushContacts(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req syncContactsRequest

	if err := ctx.ShouldBindJSON(&req); err != nil || req.Contacts == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: contacts must be an array"})
		return
	}

	results := service().SyncContacts(ctx.Request.Context(), actor, req.Contacts)

	ctx.JSON(http.StatusOK, gin.H{"results": results})
}

func PullCalls(ctx *gin.Context) {
	since, err := utils.GetSince(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	serverTime := time.Now().UTC()
	calls, err := service().CallsSince(ctx.Request.Context(), since)

	if err != nil {
		respondError(ctx, err, "Call")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"calls": calls, "server_time": serverTime})
}

func PushCalls(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req syncCallsRequest

	if err := ctx.ShouldBindJSON(&req); err != nil || req.Calls == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: calls must be an array"})
		return
	}

	result := service().IngestCalls(ctx.Request.Context(), actor, req.Calls)

	ctx.JSON(http.StatusOK, result)
}
