// Package services holds the CRM's store logic: call ingestion with
// duplicate detection, shared contacts, and user administration.
package services

import (
	"context"
	"errors"

	"github.com/ran-crm/crm/internal/types"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/ran-crm/crm/internal/services")

var (
	ErrInvalidDirection   = errors.New("direction must be one of incoming, outgoing, missed")
	ErrMissingPhoneNumber = errors.New("phone_number is required")
	ErrInvalidDuration    = errors.New("duration must not be negative")
	ErrInvalidUUID        = errors.New("uuid must be at most 128 characters")
	ErrInvalidPayload     = errors.New("invalid payload")
	ErrMissingName        = errors.New("name is required")
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidRole        = errors.New("role must be admin or user")

	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrForbidden          = errors.New("Forbidden")
	ErrNotFound           = errors.New("Not found")
	ErrDuplicateCall      = errors.New("Duplicate call")
	ErrPhoneConflict      = errors.New("Phone number conflict - existing older record kept")
	ErrEmailTaken         = errors.New("Email already exists")
	ErrSelfDelete         = errors.New("Cannot delete yourself")
)

var validationErrors = []error{
	ErrInvalidDirection,
	ErrMissingPhoneNumber,
	ErrInvalidDuration,
	ErrInvalidUUID,
	ErrInvalidPayload,
	ErrMissingName,
	ErrInvalidEmail,
	ErrWeakPassword,
	ErrInvalidRole,
}

// IsValidation reports whether err is caused by bad client input.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Actor is the authenticated caller an operation runs on behalf of.
type Actor struct {
	ID    uint
	Email string
	Role  string
}

func (a Actor) IsAdmin() bool {
	return a.Role == types.RoleAdmin
}

func (a Actor) canModify(ownerID *uint) bool {
	if a.IsAdmin() {
		return true
	}
	return ownerID != nil && *ownerID == a.ID
}

type Service struct {
	db *gorm.DB
}

// New returns a Service backed by gdb
func New(gdb *gorm.DB) *Service {
	return &Service{db: gdb}
}

func (s *Service) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}
