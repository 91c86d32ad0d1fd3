package utils

import (
	"log"
	"net/http"

	"github.com/ran-crm/crm/db"
)

// ClassifyDBError maps a store error to a status code and a client-safe message.
// Unexpected errors are logged.
func ClassifyDBError(err error, resource string) (int, string) {
	switch {
	case db.IsNotFound(err):
		return http.StatusNotFound, resource + " not found"
	case db.IsDuplicateKey(err):
		return http.StatusConflict, resource + " already exists"
	default:
		log.Printf("Database error on %s: %v", resource, err)
		return http.StatusInternalServerError, "Internal server error"
	}
}
