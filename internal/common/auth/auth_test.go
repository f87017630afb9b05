package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blossom-cafe/internal/common/config"
	"blossom-cafe/internal/domain"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	return New(config.Auth{
		JWTSecret: "test-secret",
		TokenTTL:  time.Minute,
		Operators: []config.Operator{{Username: "marie", PasswordHash: hash}},
	})
}

func TestLoginAndVerify(t *testing.T) {
	a := newTestAuthenticator(t)

	token, err := a.Login("marie", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "marie", claims.Operator)
}

func TestLoginRejections(t *testing.T) {
	a := newTestAuthenticator(t)

	var ae *domain.AuthenticationError

	_, err := a.Login("marie", "wrong")
	require.ErrorAs(t, err, &ae)

	_, err = a.Login("nobody", "s3cret")
	require.ErrorAs(t, err, &ae)
}

func TestVerifyRejections(t *testing.T) {
	a := newTestAuthenticator(t)
	var ae *domain.AuthenticationError

	t.Run("garbage token", func(t *testing.T) {
		_, err := a.Verify("not.a.token")
		require.ErrorAs(t, err, &ae)
	})

	t.Run("wrong secret", func(t *testing.T) {
		hash, _ := HashPassword("s3cret")
		other := New(config.Auth{
			JWTSecret: "different-secret",
			TokenTTL:  time.Minute,
			Operators: []config.Operator{{Username: "marie", PasswordHash: hash}},
		})
		token, err := other.Login("marie", "s3cret")
		require.NoError(t, err)

		_, err = a.Verify(token)
		require.ErrorAs(t, err, &ae)
	})

	t.Run("expired token", func(t *testing.T) {
		a.ttl = -time.Minute
		token, err := a.Login("marie", "s3cret")
		require.NoError(t, err)

		_, err = a.Verify(token)
		require.ErrorAs(t, err, &ae)
	})
}

func TestMiddleware(t *testing.T) {
	a := newTestAuthenticator(t)
	token, err := a.Login("marie", "s3cret")
	require.NoError(t, err)

	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := FromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "marie", claims.Operator)
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid token passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTokenFromUpgrade(t *testing.T) {
	t.Run("header wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws?token=from-query", nil)
		req.Header.Set("Authorization", "Bearer from-header")
		tok, err := TokenFromUpgrade(req)
		require.NoError(t, err)
		assert.Equal(t, "from-header", tok)
	})

	t.Run("query fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws?token=from-query", nil)
		tok, err := TokenFromUpgrade(req)
		require.NoError(t, err)
		assert.Equal(t, "from-query", tok)
	})

	t.Run("no credential", func(t *testing.T) {
		_, err := TokenFromUpgrade(httptest.NewRequest(http.MethodGet, "/ws", nil))
		require.Error(t, err)
	})
}
