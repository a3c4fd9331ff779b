package idgen

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDReserver_Reserve(t *testing.T) {
	reserver := NewUUIDReserver()

	ids, err := reserver.Reserve(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, ids, 5)

	seen := make(map[uuid.UUID]bool)
	for _, id := range ids {
		assert.Equal(t, uuid.Version(7), id.Version())
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestUUIDReserver_Reserve_NonPositive(t *testing.T) {
	reserver := NewUUIDReserver()

	ids, err := reserver.Reserve(context.Background(), 0)
	require.NoError(t, err)
	assert.Nil(t, ids)

	ids, err = reserver.Reserve(context.Background(), -3)
	require.NoError(t, err)
	assert.Nil(t, ids)
}
