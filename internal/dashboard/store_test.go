package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blossom-cafe/internal/domain"
)

func mkOrder(id int64, status domain.Status, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:        id,
		Number:    "ORD_20260830_001",
		Status:    status,
		CreatedAt: createdAt,
		Version:   1,
	}
}

func TestStoreMerge(t *testing.T) {
	s := NewStore()
	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	o := mkOrder(1, domain.StatusPending, base)
	s.Merge(o)
	require.Equal(t, 1, s.Len())

	// merging the same order again is idempotent
	s.Merge(o)
	assert.Equal(t, 1, s.Len())

	// a newer copy replaces the old one wholesale
	o.Status = domain.StatusPreparing
	o.Version = 2
	s.Merge(o)
	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPreparing, got.Status)
	assert.EqualValues(t, 2, got.Version)

	// an unknown order is appended
	s.Merge(mkOrder(2, domain.StatusPending, base))
	assert.Equal(t, 2, s.Len())
}

func TestStoreApplyStatusChange(t *testing.T) {
	s := NewStore()
	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	s.Merge(mkOrder(7, domain.StatusPending, base))

	ok := s.ApplyStatusChange(domain.StatusChange{OrderID: 7, Status: domain.StatusPreparing})
	require.True(t, ok)
	got, _ := s.Get(7)
	assert.Equal(t, domain.StatusPreparing, got.Status)

	// a status change for an order we do not hold is ignored, not fatal
	ok = s.ApplyStatusChange(domain.StatusChange{OrderID: 999, Status: domain.StatusReady})
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestStoreReplaceAll(t *testing.T) {
	s := NewStore()
	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	s.Merge(mkOrder(1, domain.StatusPending, base))
	s.Merge(mkOrder(2, domain.StatusReady, base))

	s.ReplaceAll([]domain.Order{mkOrder(3, domain.StatusPending, base)})
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get(1)
	assert.False(t, ok)
}
