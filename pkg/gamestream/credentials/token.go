package credentials

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what can be read from a bearer token without verifying it.
type TokenInfo struct {
	Subject   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry at or before now.
func (i *TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// InspectToken decodes the claims of a JWT. The signature is not checked:
// only the server can do that, this is for showing the user what is stored.
// Tokens that are not JWTs return an error.
func InspectToken(token string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("token is not a JWT: %w", err)
	}

	info := &TokenInfo{}
	var err error
	if info.Subject, err = claims.GetSubject(); err != nil {
		return nil, fmt.Errorf("invalid sub claim: %w", err)
	}
	if info.Issuer, err = claims.GetIssuer(); err != nil {
		return nil, fmt.Errorf("invalid iss claim: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("invalid exp claim: %w", err)
	}
	if exp != nil {
		info.ExpiresAt = exp.Time
	}

	iat, err := claims.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("invalid iat claim: %w", err)
	}
	if iat != nil {
		info.IssuedAt = iat.Time
	}

	return info, nil
}
