package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ran-crm/crm/internal/services"
	"github.com/ran-crm/crm/internal/utils"
)

type bulkCallsRequest struct {
	Calls []json.RawMessage `json:"calls"`
}

func ListCalls(ctx *gin.Context) {
	filter, err := callFilter(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	calls, err := service().ListCalls(ctx.Request.Context(), filter)

	if err != nil {
		respondError(ctx, err, "Call")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"calls": calls})
}

func callFilter(ctx *gin.Context) (services.CallFilter, error) {
	var filter services.CallFilter
	var err error

	if filter.UserID, err = utils.GetOptionalUintQuery(ctx, "user_id"); err != nil {
		return filter, err
	}

	if filter.Since, err = utils.GetSince(ctx); err != nil {
		return filter, err
	}

	if filter.Limit, err = utils.GetLimit(ctx); err != nil {
		return filter, err
	}

	filter.Direction = ctx.Query("direction")

	return filter, nil
}

func CreateCall(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req services.CallInput

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	call, err := service().IngestCall(ctx.Request.Context(), actor, req)

	if errors.Is(err, services.ErrDuplicateCall) {
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error(), "call": call})
		return
	}

	if err != nil {
		respondError(ctx, err, "Call")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"call": call})
}

// BulkCreateCalls accepts either {"calls": [...]} or a bare array.
func BulkCreateCalls(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	items, err := readCallBatch(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := service().IngestCalls(ctx.Request.Context(), actor, items)

	ctx.JSON(http.StatusOK, result)
}

func readCallBatch(ctx *gin.Context) ([]json.RawMessage, error) {
	body, err := ctx.GetRawData()

	if err != nil {
		return nil, errors.New("Invalid payload")
	}

	body = bytes.TrimSpace(body)

	if len(body) > 0 && body[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, errors.New("Invalid payload")
		}
		return items, nil
	}

	var req bulkCallsRequest

	if err := json.Unmarshal(body, &req); err != nil || req.Calls == nil {
		return nil, errors.New("Invalid payload: calls must be an array")
	}

	return req.Calls, nil
}

func GetCallStats(ctx *gin.Context) {
	userID, err := utils.GetOptionalUintQuery(ctx, "user_id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stats, err := service().CallStats(ctx.Request.Context(), userID)

	if err != nil {
		respondError(ctx, err, "Call")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"stats": stats})
}

func DeleteCall(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	id, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := service().DeleteCall(ctx.Request.Context(), actor, id); err != nil {
		respondError(ctx, err, "Call")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Call deleted successfully"})
}
