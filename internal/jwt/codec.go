// Package jwt emite y verifica los tokens de acceso y refresh (EdDSA).
package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distingue access de refresh; un token de un tipo nunca se
// acepta como el otro.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken = errors.New("jwt: invalid token")
	ErrWrongType    = errors.New("jwt: unexpected token type")
)

// Claims son las claims propias más las registradas.
type Claims struct {
	Role string    `json:"role,omitempty"`
	Type TokenType `json:"typ"`
	jwtv5.RegisteredClaims
}

// Subject es a quién se emite el token.
type Subject struct {
	UserID string
	Role   string
}

// Codec firma y verifica tokens con un par de claves fijo.
type Codec struct {
	Iss        string
	Keys       *Keys
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Leeway tolera desfasajes de reloj en exp/nbf.
	Leeway time.Duration

	now func() time.Time
}

// NewCodec crea un Codec con TTLs default (15m access, 7d refresh).
func NewCodec(iss string, keys *Keys) *Codec {
	return &Codec{
		Iss:        iss,
		Keys:       keys,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Leeway:     30 * time.Second,
		now:        time.Now,
	}
}

// WithClock reemplaza el reloj. Solo para tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

func (c *Codec) ttl(t TokenType) time.Duration {
	if t == TypeRefresh {
		return c.RefreshTTL
	}
	return c.AccessTTL
}

// Issue firma un token del tipo dado. Cada token lleva un jti único, así
// dos emisiones para el mismo sujeto en el mismo segundo nunca coinciden.
func (c *Codec) Issue(t TokenType, sub Subject) (string, time.Time, error) {
	now := c.now().UTC()
	exp := now.Add(c.ttl(t))

	claims := Claims{
		Role: sub.Role,
		Type: t,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.Iss,
			Subject:   sub.UserID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = c.Keys.KID
	signed, err := tk.SignedString(c.Keys.Private)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, exp, nil
}

// Verify valida firma, issuer, vigencia y tipo. Cualquier falla de
// validación se reporta como ErrInvalidToken (o ErrWrongType).
func (c *Codec) Verify(raw string, want TokenType) (*Claims, error) {
	var claims Claims
	tok, err := jwtv5.ParseWithClaims(raw, &claims,
		func(*jwtv5.Token) (any, error) { return c.Keys.Public, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodEdDSA.Alg()}),
		jwtv5.WithIssuer(c.Iss),
		jwtv5.WithLeeway(c.Leeway),
		jwtv5.WithTimeFunc(c.now),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != want {
		return nil, ErrWrongType
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &claims, nil
}
