package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Signer mints session tokens with the shared secret
type Signer struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewSigner creates a Signer from the same Config used by the Validator
func NewSigner(config Config) *Signer {
	return &Signer{
		secret:   []byte(config.Secret),
		issuer:   config.Issuer,
		audience: config.Audience,
		now:      time.Now,
	}
}

// Identity is the subject a token is issued for
type Identity struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Role   string
}

// Sign returns a signed HS256 token valid for ttl
func (s *Signer) Sign(identity Identity, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Email: identity.Email,
		Name:  identity.Name,
		Role:  identity.Role,
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}
