package models

type User struct {
	BaseModel

	Name         string `gorm:"not null;default:''" json:"name"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"size:16;not null;default:user" json:"role"`
}
