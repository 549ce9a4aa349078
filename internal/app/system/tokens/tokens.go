// Package tokens issues and verifies the console's API tokens (HS256 JWTs)
// and consults the blocklist so revoked tokens stop working immediately.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/shipyard/internal/app/system/blocklist"
	"github.com/dalemusser/shipyard/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLen is the shortest accepted signing secret.
const MinSecretLen = 32

const issuer = "shipyard"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevoked      = errors.New("token has been revoked")
	ErrMissingToken = errors.New("missing token")
)

// Claims are the console-specific JWT claims.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the subject.
func (c *Claims) UserID() string { return c.Subject }

// Service signs and verifies tokens.
type Service struct {
	secret    []byte
	expiry    time.Duration
	blocklist blocklist.Blocklist
	now       func() time.Time
}

// NewService builds a Service. The blocklist is required.
func NewService(secret string, expiry time.Duration, bl blocklist.Blocklist) (*Service, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLen)
	}
	if expiry <= 0 {
		expiry = blocklist.DefaultTTL
	}
	return &Service{
		secret:    []byte(secret),
		expiry:    expiry,
		blocklist: bl,
		now:       time.Now,
	}, nil
}

// Expiry returns the lifetime of issued tokens.
func (s *Service) Expiry() time.Duration { return s.expiry }

// Issue signs a token for u.
func (s *Service) Issue(u models.User) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   u.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

func (s *Service) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Parse verifies raw and rejects revoked tokens.
func (s *Service) Parse(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return nil, err
	}
	blocked, err := s.blocklist.IsBlocked(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("check blocklist: %w", err)
	}
	if blocked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke blocklists one of our tokens for the rest of its lifetime. An
// already expired or unparseable token needs no entry.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	claims, err := s.parse(raw)
	if err != nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.blocklist.Put(ctx, raw, ttl)
}

// RevokeForeign blocklists a token we did not issue (for example one named
// by the identity provider's back-channel logout) for the standard lifetime.
func (s *Service) RevokeForeign(ctx context.Context, raw string) error {
	if raw == "" {
		return ErrMissingToken
	}
	return s.blocklist.Put(ctx, raw, s.expiry)
}

// FromRequest extracts a bearer token from the Authorization header, falling
// back to the "token" query parameter used by websocket clients.
func FromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
