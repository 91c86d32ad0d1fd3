package services

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/ran-crm/crm/db"
	"github.com/ran-crm/crm/internal/auth"
	"github.com/ran-crm/crm/internal/events"
	"github.com/ran-crm/crm/internal/models"
	"github.com/ran-crm/crm/internal/types"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const MinPasswordLength = 6

type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type FlushResult struct {
	CallsDeleted    int64 `json:"calls_deleted"`
	ContactsDeleted int64 `json:"contacts_deleted"`
}

// NormalizeEmail lowercases and trims an email for storage and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (in UserInput) normalize() (UserInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))

	if in.Role == "" {
		in.Role = types.RoleUser
	}

	if !types.IsValidRole(in.Role) {
		return in, ErrInvalidRole
	}

	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return in, ErrInvalidEmail
	}

	if len(in.Password) < MinPasswordLength {
		return in, ErrWeakPassword
	}

	return in, nil
}

// Authenticate answers ErrInvalidCredentials for both unknown emails and wrong
// passwords.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var users []models.User

	if err := s.conn(ctx).Where("email = ?", NormalizeEmail(email)).Limit(1).Find(&users).Error; err != nil {
		return nil, err
	}

	if len(users) == 0 || !auth.CheckPassword(users[0].PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return &users[0], nil
}

// CreateUser registers an account. actor is nil for self-signup and seeding.
func (s *Service) CreateUser(ctx context.Context, actor *Actor, in UserInput) (*models.User, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	}

	if err := s.conn(ctx).Create(&user).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if actor != nil {
		s.RecordAudit(ctx, AuditEntry{
			Actor:        *actor,
			Action:       AuditUserCreate,
			ResourceType: "user",
			ResourceID:   strconv.FormatUint(uint64(user.ID), 10),
			Metadata:     map[string]any{"email": user.Email, "role": user.Role},
		})
	}

	ev := events.Event{Type: events.UserCreated, ResourceID: user.ID, Data: types.NewUserResponse(user)}
	if actor != nil {
		ev.ActorID = actor.ID
	}
	events.Publish(ctx, ev)

	return &user, nil
}

// ListUsers returns all accounts, newest first
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := s.conn(ctx).Order("created_at DESC, id DESC").Find(&users).Error

	return users, err
}

// GetUser loads one account or returns ErrNotFound
func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User

	if err := s.conn(ctx).First(&user, id).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &user, nil
}

// DeleteUser removes the user and their calls in one transaction. Contacts
// they created stay shared, with the creator cleared.
func (s *Service) DeleteUser(ctx context.Context, actor Actor, id uint) error {
	ctx, span := tracer.Start(ctx, "services.DeleteUser")
	defer span.End()

	if id == actor.ID {
		return ErrSelfDelete
	}

	var user models.User

	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if db.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		calls := tx.Where("user_id = ?", id).Delete(&models.Call{})
		if calls.Error != nil {
			return calls.Error
		}

		if err := tx.Model(&models.Contact{}).Where("created_by_user_id = ?", id).Update("created_by_user_id", nil).Error; err != nil {
			return err
		}

		if err := tx.Delete(&user).Error; err != nil {
			return err
		}

		return recordAudit(tx, AuditEntry{
			Actor:        actor,
			Action:       AuditUserDelete,
			ResourceType: "user",
			ResourceID:   strconv.FormatUint(uint64(id), 10),
			Metadata:     map[string]any{"email": user.Email, "calls_deleted": calls.RowsAffected},
		})
	})

	if err != nil {
		return err
	}

	events.Publish(ctx, events.Event{Type: events.UserDeleted, ActorID: actor.ID, ResourceID: id})

	return nil
}

// FlushUserData deletes the user's calls, then the contacts they created.
// Other users' calls that pointed at those contacts are detached, not deleted.
func (s *Service) FlushUserData(ctx context.Context, actor Actor, id uint) (FlushResult, error) {
	ctx, span := tracer.Start(ctx, "services.FlushUserData")
	defer span.End()

	var result FlushResult

	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			if db.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		calls := tx.Where("user_id = ?", id).Delete(&models.Call{})
		if calls.Error != nil {
			return calls.Error
		}
		result.CallsDeleted = calls.RowsAffected

		owned := tx.Model(&models.Contact{}).Select("id").Where("created_by_user_id = ?", id)
		if err := tx.Model(&models.Call{}).Where("contact_id IN (?)", owned).Update("contact_id", nil).Error; err != nil {
			return err
		}

		contacts := tx.Where("created_by_user_id = ?", id).Delete(&models.Contact{})
		if contacts.Error != nil {
			return contacts.Error
		}
		result.ContactsDeleted = contacts.RowsAffected

		return recordAudit(tx, AuditEntry{
			Actor:        actor,
			Action:       AuditUserFlush,
			ResourceType: "user",
			ResourceID:   strconv.FormatUint(uint64(id), 10),
			Metadata:     map[string]any{"calls_deleted": result.CallsDeleted, "contacts_deleted": result.ContactsDeleted},
		})
	})

	if err != nil {
		return FlushResult{}, err
	}

	span.SetAttributes(
		attribute.Int64("flush.calls", result.CallsDeleted),
		attribute.Int64("flush.contacts", result.ContactsDeleted),
	)

	events.Publish(ctx, events.Event{Type: events.UserFlushed, ActorID: actor.ID, ResourceID: id, Data: result})

	return result, nil
}

// UserStats aggregates a user's contacts and calls
func (s *Service) UserStats(ctx context.Context, id uint) (*models.User, types.UserStats, error) {
	var stats types.UserStats

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, stats, err
	}

	if err := s.conn(ctx).Model(&models.Contact{}).Where("created_by_user_id = ?", id).Count(&stats.Contacts).Error; err != nil {
		return nil, stats, err
	}

	stats.Calls, err = s.CallStats(ctx, &id)
	if err != nil {
		return nil, stats, err
	}

	return user, stats, nil
}

// SeedAdmin creates the admin account once; an existing email is left alone.
func (s *Service) SeedAdmin(ctx context.Context, name, email, password string) (bool, error) {
	_, err := s.CreateUser(ctx, nil, UserInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     types.RoleAdmin,
	})

	if errors.Is(err, ErrEmailTaken) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
