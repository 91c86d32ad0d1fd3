package models

import "time"

// Call is a single call-log entry. It is unique by UUID when the client sends
// one, and always unique by (phone_number, start_time).
type Call struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UUID        *string   `gorm:"column:uuid;uniqueIndex;size:128" json:"uuid"`
	ContactID   *uint     `gorm:"index" json:"contact_id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	PhoneNumber string    `gorm:"size:64;not null;uniqueIndex:idx_calls_phone_start" json:"phone_number"`
	Direction   string    `gorm:"size:16;not null;index" json:"direction"`
	StartTime   time.Time `gorm:"not null;uniqueIndex:idx_calls_phone_start" json:"start_time"`
	Duration    int       `gorm:"not null;default:0" json:"duration"`
	Version     int       `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"` // upload time, the sync pull cursor

	// Relationships
	Contact *Contact `gorm:"foreignKey:ContactID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	User    *User    `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
