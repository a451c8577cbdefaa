package oracle

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Shared collapses concurrent lookups of the same card id into one call to
// the underlying oracle. Nothing is cached between calls, so every action
// still sees the catalog's current data.
type Shared struct {
	next  Oracle
	group singleflight.Group
}

// NewShared wraps an oracle.
func NewShared(next Oracle) *Shared {
	return &Shared{next: next}
}

// GetCardByID implements Oracle. The shared call outlives the first
// caller's cancellation, since other callers may be waiting on it.
func (s *Shared) GetCardByID(ctx context.Context, cardID string) (Card, error) {
	v, err, _ := s.group.Do(cardID, func() (interface{}, error) {
		return s.next.GetCardByID(context.WithoutCancel(ctx), cardID)
	})
	if err != nil {
		return Card{}, err
	}
	return v.(Card), nil
}
