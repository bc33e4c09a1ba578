// Package auth resolves the student behind a bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoCredential is returned when no bearer token is configured.
	ErrNoCredential = errors.New("no credential configured; set MOCKTEST_TOKEN or --token")

	// ErrExpired is returned when the token's exp claim has passed.
	ErrExpired = errors.New("credential expired")

	// ErrNoSubject is returned when the token names no student.
	ErrNoSubject = errors.New("credential has no student id")
)

// Claims are the JWT claims issued by the portal.
type Claims struct {
	StudentID string `json:"student_id,omitempty"`
	Name      string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Student returns the student ID, preferring the standard sub claim.
func (c *Claims) Student() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.StudentID
}

// TokenIdentity derives the student from a bearer token. The signature is
// not checked here; the portal verifies it on every request.
type TokenIdentity struct {
	token string
	now   func() time.Time
}

// NewTokenIdentity wraps a raw bearer token.
func NewTokenIdentity(token string) *TokenIdentity {
	return &TokenIdentity{token: strings.TrimSpace(strings.TrimPrefix(token, "Bearer ")), now: time.Now}
}

// Token returns the raw token.
func (t *TokenIdentity) Token() string { return t.token }

// Claims parses the token without verifying it.
func (t *TokenIdentity) Claims() (*Claims, error) {
	if t.token == "" {
		return nil, ErrNoCredential
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.token, claims); err != nil {
		return nil, fmt.Errorf("parse credential: %w", err)
	}
	if claims.ExpiresAt != nil && !t.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}
	return claims, nil
}

// StudentID implements the session's identity dependency.
func (t *TokenIdentity) StudentID(context.Context) (string, error) {
	claims, err := t.Claims()
	if err != nil {
		return "", err
	}
	id := claims.Student()
	if id == "" {
		return "", ErrNoSubject
	}
	return id, nil
}

// Static is a fixed student identity.
type Static string

func (s Static) StudentID(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoSubject
	}
	return string(s), nil
}

// Mint issues an HS256 token for studentID valid for ttl.
func Mint(secret []byte, studentID, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		StudentID: studentID,
		Name:      name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   studentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify checks an HS256 token's signature and expiry.
func Verify(secret []byte, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Student() == "" {
		return nil, ErrNoSubject
	}
	return claims, nil
}
