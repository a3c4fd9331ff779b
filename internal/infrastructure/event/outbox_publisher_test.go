package event

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ordercore/backend/internal/domain/shared"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func newRegisteredPublisher() *OutboxPublisher {
	serializer := NewEventSerializer()
	serializer.Register("order.created", &testEvent{})
	return NewOutboxPublisher(serializer)
}

func expectOutboxInsert(mock sqlmock.Sqlmock, events ...shared.DomainEvent) {
	rows := sqlmock.NewRows([]string{"created_at", "updated_at"})
	for _, evt := range events {
		rows.AddRow(evt.OccurredAt(), evt.OccurredAt())
	}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "outbox_events"`)).WillReturnRows(rows)
}

func TestOutboxPublisherStagesEventsInTx(t *testing.T) {
	db, mock := newMockDB(t)
	publisher := newRegisteredPublisher()

	evts := []shared.DomainEvent{
		newTestEvent("order.created", uuid.New()),
		newTestEvent("order.created", uuid.New()),
	}

	mock.ExpectBegin()
	expectOutboxInsert(mock, evts...)
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.PublishWithTx(context.Background(), tx, evts...)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisherNoEventsNoWrites(t *testing.T) {
	db, mock := newMockDB(t)
	publisher := newRegisteredPublisher()

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.PublishWithTx(context.Background(), tx)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisherRollsBackWithCaller(t *testing.T) {
	db, mock := newMockDB(t)
	publisher := newRegisteredPublisher()
	evt := newTestEvent("order.created", uuid.New())

	mock.ExpectBegin()
	expectOutboxInsert(mock, evt)
	mock.ExpectRollback()

	cause := errors.New("order insert failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := publisher.PublishWithTx(context.Background(), tx, evt); err != nil {
			return err
		}
		return cause
	})

	require.ErrorIs(t, err, cause)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxPublisherSaveEvents(t *testing.T) {
	db, mock := newMockDB(t)
	publisher := newRegisteredPublisher()
	evt := newTestEvent("order.created", uuid.New())

	mock.ExpectBegin()
	expectOutboxInsert(mock, evt)
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.SaveEvents(context.Background(), tx, evt)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	// Anything other than a *gorm.DB is rejected.
	err = publisher.SaveEvents(context.Background(), "not a tx", evt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "*gorm.DB")
}
