package event

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ordercore/backend/internal/domain/shared"
)

// adminRepoStub keeps entries in memory and implements OutboxAdminRepository.
type adminRepoStub struct {
	entries map[uuid.UUID]*shared.OutboxEntry
}

func newAdminRepoStub() *adminRepoStub {
	return &adminRepoStub{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *adminRepoStub) add(status shared.OutboxStatus) *shared.OutboxEntry {
	entry := &shared.OutboxEntry{
		ID:            uuid.New(),
		StoreID:       uuid.New(),
		EventID:       uuid.New(),
		EventType:     "order.created",
		AggregateID:   uuid.New(),
		AggregateType: "Order",
		Status:        status,
		MaxRetries:    shared.DefaultMaxRetries,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if status == shared.OutboxStatusDead {
		entry.RetryCount = shared.DefaultMaxRetries
		entry.LastError = "broker unavailable"
	}
	r.entries[entry.ID] = entry
	return entry
}

func (r *adminRepoStub) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var dead []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusDead {
			dead = append(dead, e)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].ID.String() < dead[j].ID.String() })

	total := int64(len(dead))
	start := (page - 1) * pageSize
	if start >= len(dead) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(dead) {
		end = len(dead)
	}
	return dead[start:end], total, nil
}

func (r *adminRepoStub) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	return r.entries[id], nil
}

func (r *adminRepoStub) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	r.entries[entry.ID] = entry
	return nil
}

func (r *adminRepoStub) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func newOutboxService(repo *adminRepoStub) *OutboxService {
	return NewOutboxService(repo, zap.NewNop())
}

func TestOutboxServiceGetDeadLetterEntries(t *testing.T) {
	repo := newAdminRepoStub()
	for i := 0; i < 5; i++ {
		repo.add(shared.OutboxStatusDead)
	}
	repo.add(shared.OutboxStatusPending)

	result, err := newOutboxService(repo).GetDeadLetterEntries(context.Background(), OutboxFilter{Page: 1, PageSize: 10})

	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Total)
	assert.Equal(t, 1, result.TotalPages)
	require.Len(t, result.Entries, 5)
	for _, entry := range result.Entries {
		assert.Equal(t, "DEAD", entry.Status)
	}
}

func TestOutboxServiceGetDeadLetterEntriesPagination(t *testing.T) {
	repo := newAdminRepoStub()
	for i := 0; i < 7; i++ {
		repo.add(shared.OutboxStatusDead)
	}

	result, err := newOutboxService(repo).GetDeadLetterEntries(context.Background(), OutboxFilter{Page: 3, PageSize: 3})

	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Total)
	assert.Equal(t, 3, result.TotalPages)
	assert.Len(t, result.Entries, 1)
}

func TestOutboxServiceGetDeadLetterEntriesClampsFilter(t *testing.T) {
	repo := newAdminRepoStub()
	repo.add(shared.OutboxStatusDead)

	result, err := newOutboxService(repo).GetDeadLetterEntries(context.Background(), OutboxFilter{Page: 0, PageSize: 500})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, maxOutboxPageSize, result.PageSize)
}

func TestOutboxServiceGetEntry(t *testing.T) {
	repo := newAdminRepoStub()
	entry := repo.add(shared.OutboxStatusFailed)

	got, err := newOutboxService(repo).GetEntry(context.Background(), entry.ID)

	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, "order.created", got.EventType)
	assert.Equal(t, "FAILED", got.Status)
}

func TestOutboxServiceGetEntryNotFound(t *testing.T) {
	repo := newAdminRepoStub()

	_, err := newOutboxService(repo).GetEntry(context.Background(), uuid.New())

	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "ENTRY_NOT_FOUND", derr.Code)
}

func TestOutboxServiceRetryDeadEntry(t *testing.T) {
	repo := newAdminRepoStub()
	dead := repo.add(shared.OutboxStatusDead)

	result, err := newOutboxService(repo).RetryDeadEntry(context.Background(), dead.ID)

	require.NoError(t, err)
	assert.Equal(t, "PENDING", result.Status)
	assert.Zero(t, result.RetryCount)
	assert.Empty(t, result.LastError)
}

func TestOutboxServiceRetryDeadEntryNotFound(t *testing.T) {
	repo := newAdminRepoStub()

	_, err := newOutboxService(repo).RetryDeadEntry(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestOutboxServiceRetryDeadEntryWrongStatus(t *testing.T) {
	repo := newAdminRepoStub()
	entry := repo.add(shared.OutboxStatusPending)

	_, err := newOutboxService(repo).RetryDeadEntry(context.Background(), entry.ID)

	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "INVALID_STATUS", derr.Code)
}

func TestOutboxServiceRetryAllDeadEntries(t *testing.T) {
	repo := newAdminRepoStub()
	for i := 0; i < 3; i++ {
		repo.add(shared.OutboxStatusDead)
	}
	pending := repo.add(shared.OutboxStatusPending)

	count, err := newOutboxService(repo).RetryAllDeadEntries(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	for _, entry := range repo.entries {
		assert.Equal(t, shared.OutboxStatusPending, entry.Status)
		if entry.ID != pending.ID {
			assert.Zero(t, entry.RetryCount)
		}
	}
}

func TestOutboxServiceGetStats(t *testing.T) {
	repo := newAdminRepoStub()
	statuses := []shared.OutboxStatus{
		shared.OutboxStatusPending,
		shared.OutboxStatusPending,
		shared.OutboxStatusProcessing,
		shared.OutboxStatusSent,
		shared.OutboxStatusSent,
		shared.OutboxStatusSent,
		shared.OutboxStatusFailed,
		shared.OutboxStatusDead,
	}
	for _, status := range statuses {
		repo.add(status)
	}

	stats, err := newOutboxService(repo).GetStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Processing)
	assert.Equal(t, int64(3), stats.Sent)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Dead)
	assert.Equal(t, int64(8), stats.Total)
}
