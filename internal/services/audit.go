package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/ran-crm/crm/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AuditUserCreate = "user.create"
	AuditUserDelete = "user.delete"
	AuditUserFlush  = "user.flush"
)

type AuditEntry struct {
	Actor        Actor
	Action       string
	ResourceType string
	ResourceID   string
	Metadata     map[string]any
}

func recordAudit(tx *gorm.DB, entry AuditEntry) error {
	var metadata datatypes.JSON

	if len(entry.Metadata) > 0 {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
		metadata = datatypes.JSON(b)
	}

	row := models.AuditLog{
		ActorID:      entry.Actor.ID,
		ActorEmail:   entry.Actor.Email,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Metadata:     metadata,
	}

	return tx.Create(&row).Error
}

// RecordAudit writes an entry outside any transaction. Failures are logged.
func (s *Service) RecordAudit(ctx context.Context, entry AuditEntry) {
	if err := recordAudit(s.conn(ctx), entry); err != nil {
		log.Printf("[Audit] Failed to save audit log: %v", err)
	}
}

// ListAuditLogs returns the newest audit entries first
func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	logs := []models.AuditLog{}

	err := s.conn(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error

	return logs, err
}
