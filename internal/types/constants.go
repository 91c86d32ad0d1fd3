package types

import "strings"

const ContextUserKey = "user"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
	DirectionMissed   = "missed"
)

var Directions = []string{DirectionIncoming, DirectionOutgoing, DirectionMissed}

var (
	// "*" allows any origin
	defaultOrigins = []string{"*"}

	AllowedOrigins = defaultOrigins
)

func IsValidDirection(direction string) bool {
	for _, d := range Directions {
		if d == direction {
			return true
		}
	}

	return false
}

func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// SetAllowedOrigins trims the configured origins and drops empty entries.
func SetAllowedOrigins(origins []string) {
	cleaned := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}

	if len(cleaned) == 0 {
		cleaned = defaultOrigins
	}

	AllowedOrigins = cleaned
}

func AllowsAnyOrigin() bool {
	for _, origin := range AllowedOrigins {
		if origin == "*" {
			return true
		}
	}

	return false
}

func IsAllowedOrigin(origin string) bool {
	if AllowsAnyOrigin() {
		return true
	}

	for _, allowed := range AllowedOrigins {
		if origin == allowed {
			return true
		}
	}

	return false
}
