// Package token issues the signed access tokens that httpkit.AuthRequired
// accepts.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const accessTokenType = "access"

var ErrMissingSecret = errors.New("jwt secret is empty")

// Issuer signs HS256 access tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the time source.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue returns a token carrying the user id, role and tenant. Company-less
// super admins get no tenant_id claim.
func (i *Issuer) Issue(userID uuid.UUID, role string, companyID *uuid.UUID) (string, time.Time, error) {
	if len(i.secret) == 0 {
		return "", time.Time{}, ErrMissingSecret
	}
	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.ttl)

	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"type": accessTokenType,
		"role": role,
		"iat":  issuedAt.Unix(),
		"exp":  expiresAt.Unix(),
	}
	if companyID != nil {
		claims["tenant_id"] = companyID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
