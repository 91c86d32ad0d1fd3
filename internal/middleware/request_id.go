package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(RequestIDHeader)

		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		ctx.Set(RequestIDKey, id)
		ctx.Header(RequestIDHeader, id)
		ctx.Next()
	}
}
