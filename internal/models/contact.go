package models

import "time"

// Contact is shared between all users. The phone number identifies it;
// a conflicting insert keeps the older row.
type Contact struct {
	BaseModel

	Name            string    `gorm:"not null" json:"name"`
	PhoneNumber     string    `gorm:"uniqueIndex;size:64;not null" json:"phone_number"`
	CreatedByUserID *uint     `gorm:"index" json:"created_by_user_id"`
	Version         int       `gorm:"not null;default:1" json:"version"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relationships
	CreatedBy *User `gorm:"foreignKey:CreatedByUserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
}
