package event

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordercore/backend/internal/domain/shared"
)

var outboxColumns = []string{
	"id", "store_id", "event_id", "event_type", "aggregate_id",
	"aggregate_type", "payload", "status", "retry_count", "max_retries",
	"last_error", "next_retry_at", "processed_at", "created_at", "updated_at",
}

func pendingOutboxRow(rows *sqlmock.Rows, entryID, storeID uuid.UUID) {
	now := time.Now()
	rows.AddRow(
		entryID, storeID, uuid.New(), "order.created", uuid.New(),
		"Order", []byte(`{}`), "PENDING", 0, 5,
		"", nil, nil, now, now,
	)
}

func TestGormOutboxRepositorySave(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	storeID := uuid.New()
	entry := shared.NewOutboxEntry(storeID, newTestEvent("order.created", storeID), []byte(`{"order_number":"#1001"}`))

	mock.ExpectBegin()
	expectOutboxInsert(mock, newTestEvent("order.created", storeID))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepositorySaveNothing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	require.NoError(t, repo.Save(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepositoryFindPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	entryID := uuid.New()
	rows := sqlmock.NewRows(outboxColumns)
	pendingOutboxRow(rows, entryID, uuid.New())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE status = $1 ORDER BY created_at ASC LIMIT $2`)).
		WithArgs(shared.OutboxStatusPending, 25).
		WillReturnRows(rows)

	entries, err := repo.FindPending(context.Background(), 25)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entryID, entries[0].ID)
	assert.Equal(t, "order.created", entries[0].EventType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepositoryFindRetryable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	before := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE status = $1 AND next_retry_at <= $2 ORDER BY next_retry_at ASC LIMIT $3`)).
		WithArgs(shared.OutboxStatusFailed, before, 25).
		WillReturnRows(sqlmock.NewRows(outboxColumns))

	entries, err := repo.FindRetryable(context.Background(), before, 25)

	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepositoryUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	storeID := uuid.New()
	entry := shared.NewOutboxEntry(storeID, newTestEvent("order.created", storeID), []byte(`{}`))
	entry.MarkSent()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "outbox_events"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	before := time.Now()
	require.NoError(t, repo.Update(context.Background(), entry))
	assert.False(t, entry.UpdatedAt.Before(before))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepositoryDeleteOlderThan(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "outbox_events" WHERE status = $1 AND processed_at < $2`)).
		WithArgs(shared.OutboxStatusSent, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectCommit()

	deleted, err := repo.DeleteOlderThan(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepositoryFindDead(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "outbox_events" WHERE status = $1`)).
		WithArgs(shared.OutboxStatusDead).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	rows := sqlmock.NewRows(outboxColumns)
	pendingOutboxRow(rows, uuid.New(), uuid.New())
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE status = $1 ORDER BY updated_at DESC LIMIT $2`)).
		WithArgs(shared.OutboxStatusDead, 10).
		WillReturnRows(rows)

	entries, total, err := repo.FindDead(context.Background(), 1, 10)

	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepositoryFindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	entryID := uuid.New()
	rows := sqlmock.NewRows(outboxColumns)
	pendingOutboxRow(rows, entryID, uuid.New())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE id = $1`)).
		WithArgs(entryID, 1).
		WillReturnRows(rows)

	entry, err := repo.FindByID(context.Background(), entryID)

	require.NoError(t, err)
	assert.Equal(t, entryID, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepositoryCountByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, count(*) as count FROM "outbox_events" GROUP BY`)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("PENDING", 4).
			AddRow("DEAD", 1))

	counts, err := repo.CountByStatus(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), counts[shared.OutboxStatusPending])
	assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepositoryWithTx(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewGormOutboxRepository(db)

	scoped := repo.WithTx(db)

	require.NotNil(t, scoped)
	assert.NotSame(t, repo, scoped)
}
