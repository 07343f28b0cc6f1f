package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is used when the issuer is created with a zero TTL.
const DefaultTokenTTL = 24 * time.Hour

const issuer = "civicpulse"

// ErrInvalidToken is returned for any token that does not verify. The cause
// is deliberately not exposed to callers.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the JWT claims of a CivicPulse access token.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. secret must not be empty.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for user and its expiry.
func (t *TokenIssuer) Issue(user *domain.User) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)

	claims := Claims{
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses a token and returns its principal.
// Returns ErrInvalidToken for bad signatures, expiry, or malformed claims.
func (t *TokenIssuer) Verify(tokenString string) (*Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return nil, ErrInvalidToken
	}

	return &Principal{UserID: id, Email: claims.Email, Name: claims.Name, Role: role}, nil
}
