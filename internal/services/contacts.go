package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/ran-crm/crm/db"
	"github.com/ran-crm/crm/internal/events"
	"github.com/ran-crm/crm/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const ContactExistsWarning = "Phone number already exists - keeping older record"

type ContactInput struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// ContactUpdate leaves a field untouched when it is nil or blank.
type ContactUpdate struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phone_number"`
}

const (
	SyncInserted = "inserted"
	SyncExists   = "exists"
	SyncError    = "error"
)

type ContactSyncResult struct {
	Index   int             `json:"index"`
	Status  string          `json:"status"`
	Contact *models.Contact `json:"contact,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (in ContactInput) normalize() (ContactInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)

	if in.Name == "" {
		return in, ErrMissingName
	}

	if in.PhoneNumber == "" {
		return in, ErrMissingPhoneNumber
	}

	return in, nil
}

// ListContacts returns every shared contact ordered by name
func (s *Service) ListContacts(ctx context.Context) ([]models.Contact, error) {
	contacts := []models.Contact{}
	err := s.conn(ctx).Order("name ASC, id ASC").Find(&contacts).Error

	return contacts, err
}

// ContactsByCreator returns the contacts a user added
func (s *Service) ContactsByCreator(ctx context.Context, userID uint) ([]models.Contact, error) {
	contacts := []models.Contact{}
	err := s.conn(ctx).Where("created_by_user_id = ?", userID).Order("name ASC, id ASC").Find(&contacts).Error

	return contacts, err
}

// ContactsSince returns contacts created or updated after since, oldest first.
func (s *Service) ContactsSince(ctx context.Context, since *time.Time) ([]models.Contact, error) {
	q := s.conn(ctx).Model(&models.Contact{})

	if since != nil {
		q = q.Where("updated_at > ? OR created_at > ?", since.UTC(), since.UTC())
	}

	contacts := []models.Contact{}
	err := q.Order("created_at ASC, id ASC").Find(&contacts).Error

	return contacts, err
}

// CreateContact inserts the contact unless its phone number is taken, in which
// case the older row is returned with created == false.
func (s *Service) CreateContact(ctx context.Context, actor Actor, in ContactInput) (*models.Contact, bool, error) {
	contact, created, err := s.insertContact(ctx, actor, in)
	if err != nil {
		return nil, false, err
	}

	if created {
		events.Publish(ctx, events.Event{Type: events.ContactCreated, ActorID: actor.ID, ResourceID: contact.ID, Data: contact})
	}

	return contact, created, nil
}

func (s *Service) insertContact(ctx context.Context, actor Actor, in ContactInput) (*models.Contact, bool, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, false, err
	}

	gdb := s.conn(ctx)
	creator := actor.ID

	contact := models.Contact{
		Name:            in.Name,
		PhoneNumber:     in.PhoneNumber,
		CreatedByUserID: &creator,
		Version:         1,
	}

	result := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&contact)

	if result.Error != nil && !db.IsDuplicateKey(result.Error) {
		return nil, false, result.Error
	}

	if result.Error == nil && result.RowsAffected > 0 {
		return &contact, true, nil
	}

	var existing models.Contact
	if err := gdb.Where("phone_number = ?", in.PhoneNumber).Take(&existing).Error; err != nil {
		return nil, false, err
	}

	return &existing, false, nil
}

// UpdateContact applies the non-blank fields of in and bumps the version. A
// body with nothing to change returns the stored row as is.
func (s *Service) UpdateContact(ctx context.Context, actor Actor, id uint, in ContactUpdate) (*models.Contact, error) {
	var (
		contact   models.Contact
		unchanged bool
	)

	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&contact, id).Error; err != nil {
			if db.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		if !actor.canModify(contact.CreatedByUserID) {
			return ErrForbidden
		}

		updates := map[string]interface{}{}

		if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
			updates["name"] = strings.TrimSpace(*in.Name)
		}

		if in.PhoneNumber != nil {
			phone := strings.TrimSpace(*in.PhoneNumber)

			if phone != "" && phone != contact.PhoneNumber {
				var taken int64
				if err := tx.Model(&models.Contact{}).Where("phone_number = ? AND id <> ?", phone, contact.ID).Count(&taken).Error; err != nil {
					return err
				}
				if taken > 0 {
					return ErrPhoneConflict
				}
				updates["phone_number"] = phone
			}
		}

		if len(updates) == 0 {
			unchanged = true
			return nil
		}

		updates["updated_at"] = time.Now().UTC()
		updates["version"] = gorm.Expr("version + 1")

		if err := tx.Model(&contact).Updates(updates).Error; err != nil {
			if db.IsDuplicateKey(err) {
				return ErrPhoneConflict
			}
			return err
		}

		return tx.First(&contact, id).Error
	})

	if err != nil {
		return nil, err
	}

	if unchanged {
		return &contact, nil
	}

	events.Publish(ctx, events.Event{Type: events.ContactUpdated, ActorID: actor.ID, ResourceID: contact.ID, Data: &contact})

	return &contact, nil
}

// DeleteContact detaches calls that reference the contact before removing it.
func (s *Service) DeleteContact(ctx context.Context, actor Actor, id uint) error {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var contact models.Contact

		if err := tx.First(&contact, id).Error; err != nil {
			if db.IsNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		if !actor.canModify(contact.CreatedByUserID) {
			return ErrForbidden
		}

		if err := tx.Model(&models.Call{}).Where("contact_id = ?", id).Update("contact_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&contact).Error
	})

	if err != nil {
		return err
	}

	events.Publish(ctx, events.Event{Type: events.ContactDeleted, ActorID: actor.ID, ResourceID: id})

	return nil
}

// SyncContacts applies insert-if-absent to every item in order.
func (s *Service) SyncContacts(ctx context.Context, actor Actor, items []json.RawMessage) []ContactSyncResult {
	ctx, span := tracer.Start(ctx, "services.SyncContacts")
	defer span.End()

	results := make([]ContactSyncResult, 0, len(items))
	inserted := 0

	for i, raw := range items {
		var in ContactInput

		if err := json.Unmarshal(raw, &in); err != nil {
			results = append(results, ContactSyncResult{Index: i, Status: SyncError, Error: ErrInvalidPayload.Error()})
			continue
		}

		contact, created, err := s.insertContact(ctx, actor, in)

		switch {
		case err == nil && created:
			inserted++
			results = append(results, ContactSyncResult{Index: i, Status: SyncInserted, Contact: contact})
		case err == nil:
			results = append(results, ContactSyncResult{Index: i, Status: SyncExists, Contact: contact})
		case IsValidation(err):
			results = append(results, ContactSyncResult{Index: i, Status: SyncError, Error: err.Error()})
		default:
			log.Printf("[Sync] Failed to store contact %d for user %d: %v", i, actor.ID, err)
			results = append(results, ContactSyncResult{Index: i, Status: SyncError, Error: "Internal server error"})
		}
	}

	span.SetAttributes(attribute.Int("contacts.total", len(items)), attribute.Int("contacts.inserted", inserted))

	if inserted > 0 {
		events.Publish(ctx, events.Event{Type: events.ContactsSynced, ActorID: actor.ID, Data: map[string]int{"inserted": inserted}})
	}

	return results
}
