package types

import (
	"time"

	"github.com/ran-crm/crm/internal/models"
)

type UserResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type CallCounts struct {
	Total         int64 `json:"total"`
	Incoming      int64 `json:"incoming"`
	Outgoing      int64 `json:"outgoing"`
	Missed        int64 `json:"missed"`
	TotalDuration int64 `json:"total_duration"`
}

type UserStats struct {
	Contacts int64      `json:"contacts"`
	Calls    CallCounts `json:"calls"`
}

func NewUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func NewUserResponses(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}
