package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ran-crm/crm/db"
)

const (
	ServiceName    = "Shared Contact CRM API"
	ServiceVersion = "1.0.0"
)

func Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": ServiceName,
		"version": ServiceVersion,
	})
}

func HealthCheck(c *gin.Context) {
	if err := db.Ping(); err != nil {
		log.Printf("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unavailable",
			"message":   "Database unreachable",
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "CRM is running",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
