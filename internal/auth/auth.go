// Package auth issues and verifies HS256 bearer tokens and carries the
// caller's identity through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleCustomer       Role = "customer"
	RoleProductManager Role = "product_manager"
	RoleSalesManager   Role = "sales_manager"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleProductManager, RoleSalesManager:
		return true
	}
	return false
}

// IsManager reports whether the role may read other customers' orders.
func (r Role) IsManager() bool {
	return r == RoleProductManager || r == RoleSalesManager
}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingKey   = errors.New("signing secret is required")
)

// Identity is the authenticated caller.
type Identity struct {
	Subject string
	Email   string
	Role    Role
}

type claims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingKey
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{secret: []byte(cfg.Secret), issuer: cfg.Issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for id that expires after the configured TTL.
func (i *Issuer) Issue(id Identity) (string, error) {
	if id.Subject == "" {
		return "", fmt.Errorf("%w: subject is required", ErrInvalidToken)
	}
	if !id.Role.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidToken, id.Role)
	}

	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: id.Email,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingKey
	}
	return &Verifier{secret: []byte(cfg.Secret), issuer: cfg.Issuer}, nil
}

// Verify parses an HS256 token and returns the identity it carries. Expired
// tokens, foreign issuers and unknown roles are rejected with ErrInvalidToken.
func (v *Verifier) Verify(raw string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if c.Subject == "" || !c.Role.Valid() {
		return Identity{}, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}

	return Identity{Subject: c.Subject, Email: c.Email, Role: c.Role}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
