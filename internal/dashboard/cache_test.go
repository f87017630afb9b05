package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blossom-cafe/internal/domain"
)

func TestCache(t *testing.T) {
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	c := NewCache(5 * time.Second)
	c.now = func() time.Time { return now }

	calls := 0
	fetch := func(context.Context) ([]domain.Order, error) {
		calls++
		return []domain.Order{mkOrder(int64(calls), domain.StatusPending, now)}, nil
	}

	ctx := context.Background()

	first, err := c.Get(ctx, fetch)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, calls)

	// within the TTL the cached copy is served
	now = now.Add(3 * time.Second)
	again, err := c.Get(ctx, fetch)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, calls)

	// past the TTL the fetch runs again
	now = now.Add(3 * time.Second)
	_, err = c.Get(ctx, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	// a mutation invalidates regardless of age
	c.Invalidate()
	_, err = c.Get(ctx, fetch)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestCacheDoesNotCacheErrors(t *testing.T) {
	c := NewCache(5 * time.Second)
	boom := errors.New("connection refused")
	calls := 0

	_, err := c.Get(context.Background(), func(context.Context) ([]domain.Order, error) {
		calls++
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	_, err = c.Get(context.Background(), func(context.Context) ([]domain.Order, error) {
		calls++
		return []domain.Order{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "error responses must not be cached")
}
