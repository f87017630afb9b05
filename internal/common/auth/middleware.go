package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"blossom-cafe/internal/domain"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// Middleware rejects requests without a valid bearer token and stores the
// claims on the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, err := extractBearerToken(r)
		if err != nil {
			http.Error(w, "unauthorized: missing token", http.StatusUnauthorized)
			return
		}
		claims, err := a.Verify(tokenStr)
		if err != nil {
			http.Error(w, "unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromRequest returns the verified claims stored by Middleware.
func FromRequest(r *http.Request) (*Claims, error) {
	claims, ok := r.Context().Value(claimsContextKey).(*Claims)
	if !ok {
		return nil, &domain.AuthenticationError{Reason: "no claims in context"}
	}
	return claims, nil
}

// TokenFromUpgrade extracts the credential for a WebSocket connect: the
// Authorization header when present, else the token query parameter
// (browser WebSocket clients cannot set headers).
func TokenFromUpgrade(r *http.Request) (string, error) {
	if tok, err := extractBearerToken(r); err == nil {
		return tok, nil
	}
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok, nil
	}
	return "", errors.New("no credential on upgrade request")
}

func extractBearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errors.New("authorization header missing")
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid authorization format")
	}
	return parts[1], nil
}
