// Package auth issues and verifies the bearer credentials used by both the
// HTTP API and the notification channel.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"blossom-cafe/internal/common/config"
	"blossom-cafe/internal/domain"
)

type Claims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// Authenticator checks operator credentials and mints short-lived tokens.
type Authenticator struct {
	secret    []byte
	ttl       time.Duration
	operators map[string]string // username -> bcrypt hash
}

func New(cfg config.Auth) *Authenticator {
	ops := make(map[string]string, len(cfg.Operators))
	for _, op := range cfg.Operators {
		ops[op.Username] = op.PasswordHash
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Authenticator{secret: []byte(cfg.JWTSecret), ttl: ttl, operators: ops}
}

// Login verifies the operator password and returns a signed token.
func (a *Authenticator) Login(username, password string) (string, error) {
	hash, ok := a.operators[username]
	if !ok {
		return "", &domain.AuthenticationError{Reason: "unknown operator"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", &domain.AuthenticationError{Reason: "bad credentials"}
	}
	return a.issue(username)
}

func (a *Authenticator) issue(username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Operator: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses a bearer token and returns its claims.
func (a *Authenticator) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, &domain.AuthenticationError{Reason: "invalid token"}
	}
	return claims, nil
}

// HashPassword is used by deploy tooling to produce operator entries.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}
