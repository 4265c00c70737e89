// Package identity verifies the bearer credential presented at connection
// time and resolves it to a known user. One validation attempt per
// connection attempt; failures refuse the connection before it enters the
// registry.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chatwave/dispatch-service/internal/domain"

	"github.com/golang-jwt/jwt"
)

var (
	ErrNoToken      = errors.New("missing credential token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired or not valid yet")
	ErrUnknownUser  = errors.New("token subject is not a known user")
)

type UserSource interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Tokens are HS256 with sub=userID.
type Validator struct {
	secret    []byte
	issuer    string
	clockSkew time.Duration
	users     UserSource
	now       func() time.Time
}

func NewValidator(secret []byte, issuer string, clockSkew time.Duration, users UserSource) *Validator {
	return &Validator{
		secret:    secret,
		issuer:    issuer,
		clockSkew: clockSkew,
		users:     users,
		now:       time.Now,
	}
}

type accessClaims struct {
	jwt.StandardClaims
}

// Validate parses and verifies the token, then confirms the subject exists
// in the store. Returns the user id on success.
func (v *Validator) Validate(ctx context.Context, tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", ErrNoToken
	}

	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok && ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}

	now := v.now()
	if claims.ExpiresAt != 0 {
		exp := time.Unix(claims.ExpiresAt, 0).Add(v.clockSkew)
		if now.After(exp) {
			return "", ErrTokenExpired
		}
	}

	user, err := v.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", ErrUnknownUser
		}
		return "", err
	}

	return user.ID, nil
}

// Sign issues an HS256 token for userID. Used by tooling and tests; the
// production issuer lives in the auth service.
func (v *Validator) Sign(userID string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := accessClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			IssuedAt:  now.Unix(),
			NotBefore: now.Add(-v.clockSkew).Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(v.secret)
}
