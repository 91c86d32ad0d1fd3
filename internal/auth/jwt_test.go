package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ran-crm/crm/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() models.User {
	u := models.User{Name: "Agent Smith", Email: "agent@crm.local", Role: "user"}
	u.ID = 42
	return u
}

func configure(t *testing.T) {
	t.Helper()
	require.NoError(t, Configure("test-secret", time.Hour))
}

func TestGenerateAndVerify(t *testing.T) {
	configure(t)

	token, err := GenerateJWT(testUser())
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.ID)
	assert.Equal(t, "Agent Smith", claims.Name)
	assert.Equal(t, "agent@crm.local", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "42", claims.Subject)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerifyRejectsExpired(t *testing.T) {
	configure(t)

	token, err := generateJWT(testUser(), time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	claims, err := VerifyJWT(token)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	require.NoError(t, Configure("another-secret", time.Hour))
	token, err := GenerateJWT(testUser())
	require.NoError(t, err)

	configure(t)
	claims, err := VerifyJWT(token)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	configure(t)

	token, err := GenerateJWT(testUser())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload["role"] = "admin"

	forged, err := json.Marshal(payload)
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(forged)

	claims, err := VerifyJWT(strings.Join(parts, "."))
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	configure(t)

	claims := Claims{
		ID:   1,
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	got, err := VerifyJWT(token)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMalformedInputDoesNotPanic(t *testing.T) {
	configure(t)

	inputs := []string{
		"",
		"garbage",
		"a.b",
		"a.b.c",
		"....",
		"eyJhbGciOiJIUzI1NiJ9.%%%.sig",
		strings.Repeat("x", 4096),
	}

	for _, in := range inputs {
		assert.NotPanics(t, func() {
			claims, err := VerifyJWT(in)
			assert.Nil(t, claims)
			assert.Error(t, err)
		}, in)
	}
}

func TestConfigureRequiresSecret(t *testing.T) {
	assert.Error(t, Configure("", time.Hour))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Admin@1234")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "Admin@1234"))
	assert.False(t, CheckPassword(hash, "admin@1234"))
	assert.False(t, CheckPassword("not-a-hash", "Admin@1234"))
}
