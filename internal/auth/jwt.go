package auth

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ran-crm/crm/internal/models"
)

const defaultTokenTTL = 24 * time.Hour

var (
	jwtSecret []byte
	tokenTTL  = defaultTokenTTL

	ErrInvalidToken = errors.New("Invalid or expired token")
)

// Claims is the identity carried by every access token.
type Claims struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// InitJWTSecret configures signing from the JWT_SECRET environment variable
func InitJWTSecret() error {
	return Configure(os.Getenv("JWT_SECRET"), defaultTokenTTL)
}

// Configure sets the signing secret and token lifetime
func Configure(secret string, ttl time.Duration) error {
	if secret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	jwtSecret = []byte(secret)
	tokenTTL = ttl

	return nil
}

// GenerateJWT issues an HS256 access token for user
func GenerateJWT(user models.User) (string, error) {
	return generateJWT(user, time.Now())
}

func generateJWT(user models.User, now time.Time) (string, error) {
	if len(jwtSecret) == 0 {
		return "", fmt.Errorf("JWT secret is not configured")
	}

	claims := Claims{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// VerifyJWT never panics on malformed input; every failure is ErrInvalidToken.
func VerifyJWT(tokenString string) (*Claims, error) {
	if len(jwtSecret) == 0 || tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
