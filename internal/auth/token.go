// Package auth — bearer-token issuance and validation.
//
// The basic-auth gate is fine for scripts and curl, but clients that make
// many requests shouldn't have to send the password on every one. POST
// /auth/token trades a valid credential pair for a short-lived JWT; the gate
// then accepts "Authorization: Bearer <token>" as an alternative to Basic.
//
// WHY JWT?
// JWT is stateless — the server stores no session data. Everything needed
// (subject, expiry) is inside the signed token, and the HMAC signature
// ensures nobody can mint or alter one without the secret key.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "github-users"

// TokenLifetime is how long an issued bearer token stays valid.
// Short on purpose: a leaked token expires before it is worth stealing, and
// re-issuing one costs a single basic-authenticated request.
const TokenLifetime = 15 * time.Minute

// TokenService signs and validates bearer tokens.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given HMAC secret.
// The secret should be at least 32 bytes of random data in production.
// Example: TOKEN_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: token secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. The "sub" claim carries the authenticated
// username.
type claims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs a bearer token for the given username.
func (s *TokenService) Issue(username string) (string, error) {
	return s.IssueWithDuration(username, TokenLifetime)
}

// IssueWithDuration creates a token with a custom expiry. Used by tests to
// mint already-expired tokens.
func (s *TokenService) IssueWithDuration(username string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a bearer token, returning the username from
// the "sub" claim.
//
// jwt.WithValidMethods pins the algorithm to HS256 — without it an attacker
// could attempt an algorithm-confusion attack with an unsigned token.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.New("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}
	return c.Subject, nil
}
