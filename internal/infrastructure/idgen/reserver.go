// Package idgen provides id reservation backed by time-ordered UUIDs.
package idgen

import (
	"context"

	"github.com/google/uuid"
	"github.com/ordercore/backend/internal/domain/order"
)

// UUIDReserver hands out UUIDv7 batches. Ids within a batch are
// time-ordered, so rows inserted with them cluster by creation order.
type UUIDReserver struct{}

// NewUUIDReserver creates a new UUIDReserver
func NewUUIDReserver() *UUIDReserver {
	return &UUIDReserver{}
}

// Reserve returns n fresh ordered ids
func (r *UUIDReserver) Reserve(_ context.Context, n int) ([]uuid.UUID, error) {
	if n <= 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, n)
	for i := range ids {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

var _ order.IDReserver = (*UUIDReserver)(nil)
