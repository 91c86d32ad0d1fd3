package models

import "gorm.io/datatypes"

type AuditLog struct {
	BaseModel

	ActorID      uint           `gorm:"index" json:"actor_id"`
	ActorEmail   string         `json:"actor_email"`
	Action       string         `gorm:"size:64;not null;index" json:"action"` // user.create, user.delete, user.flush
	ResourceType string         `gorm:"size:32" json:"resource_type"`
	ResourceID   string         `gorm:"size:64" json:"resource_id"`
	Metadata     datatypes.JSON `json:"metadata"`
}
