package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidDirection(t *testing.T) {
	for _, d := range []string{"incoming", "outgoing", "missed"} {
		assert.True(t, IsValidDirection(d), d)
	}

	for _, d := range []string{"", "INCOMING", "rejected", "inbound"} {
		assert.False(t, IsValidDirection(d), d)
	}
}

func TestAllowedOrigins(t *testing.T) {
	t.Cleanup(func() { SetAllowedOrigins(nil) })

	SetAllowedOrigins([]string{" https://crm.example.com ", "", "http://localhost:5173"})
	assert.Equal(t, []string{"https://crm.example.com", "http://localhost:5173"}, AllowedOrigins)
	assert.False(t, AllowsAnyOrigin())
	assert.True(t, IsAllowedOrigin("http://localhost:5173"))
	assert.False(t, IsAllowedOrigin("https://evil.example.com"))

	SetAllowedOrigins([]string{"  "})
	assert.True(t, AllowsAnyOrigin())
	assert.True(t, IsAllowedOrigin("https://anything.example.com"))
}
