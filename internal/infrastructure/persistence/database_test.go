package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type orderRow struct {
	ID      uint
	StoreID string
	Number  string
}

func openMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockConn, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockConn,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockConn
}

func TestWithStoreScopesQueries(t *testing.T) {
	db, mock, conn := openMockDatabase(t)
	defer conn.Close()

	storeID := "550e8400-e29b-41d4-a716-446655440000"
	mock.ExpectQuery(`SELECT \* FROM "order_rows" WHERE store_id = \$1`).
		WithArgs(storeID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "store_id", "number"}).
			AddRow(1, storeID, "ORD-1001"))

	var rows []orderRow
	require.NoError(t, db.WithStore(storeID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "ORD-1001", rows[0].Number)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithStoreLeavesRootHandleUntouched(t *testing.T) {
	db, _, conn := openMockDatabase(t)
	defer conn.Close()

	root := db.DB
	scoped := db.WithStore("store-a")

	assert.NotEqual(t, root, scoped)
	assert.Equal(t, root, db.DB)
}

func TestWithStorePanicsOnEmptyID(t *testing.T) {
	db, _, conn := openMockDatabase(t)
	defer conn.Close()

	assert.Panics(t, func() { db.WithStore("") })
}

func TestWithStoreParameterizesHostileInput(t *testing.T) {
	db, mock, conn := openMockDatabase(t)
	defer conn.Close()

	// The filter value travels as a bind parameter, never as SQL text.
	storeID := "store'; DROP TABLE orders; --"
	mock.ExpectQuery(`SELECT \* FROM "order_rows" WHERE store_id = \$1`).
		WithArgs(storeID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "store_id", "number"}))

	var rows []orderRow
	require.NoError(t, db.WithStore(storeID).Find(&rows).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithStoreComposesWithChainedClauses(t *testing.T) {
	t.Run("extra where", func(t *testing.T) {
		db, mock, conn := openMockDatabase(t)
		defer conn.Close()

		mock.ExpectQuery(`SELECT \* FROM "order_rows" WHERE store_id = \$1 AND number = \$2`).
			WithArgs("store-a", "ORD-2001").
			WillReturnRows(sqlmock.NewRows([]string{"id", "store_id", "number"}).
				AddRow(2, "store-a", "ORD-2001"))

		var rows []orderRow
		err := db.WithStore("store-a").Where("number = ?", "ORD-2001").Find(&rows).Error
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ordering", func(t *testing.T) {
		db, mock, conn := openMockDatabase(t)
		defer conn.Close()

		mock.ExpectQuery(`SELECT \* FROM "order_rows" WHERE store_id = \$1 ORDER BY number ASC`).
			WithArgs("store-a").
			WillReturnRows(sqlmock.NewRows([]string{"id", "store_id", "number"}).
				AddRow(1, "store-a", "ORD-1001").
				AddRow(2, "store-a", "ORD-1002"))

		var rows []orderRow
		err := db.WithStore("store-a").Order("number ASC").Find(&rows).Error
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pagination", func(t *testing.T) {
		db, mock, conn := openMockDatabase(t)
		defer conn.Close()

		mock.ExpectQuery(`SELECT \* FROM "order_rows" WHERE store_id = \$1 LIMIT \$2 OFFSET \$3`).
			WithArgs("store-a", 10, 5).
			WillReturnRows(sqlmock.NewRows([]string{"id", "store_id", "number"}).
				AddRow(6, "store-a", "ORD-1006"))

		var rows []orderRow
		err := db.WithStore("store-a").Limit(10).Offset(5).Find(&rows).Error
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTwoStoresGetDistinctScopes(t *testing.T) {
	db, _, conn := openMockDatabase(t)
	defer conn.Close()

	assert.NotEqual(t, db.WithStore("store-a"), db.WithStore("store-b"))
}

func TestTransactionCommitsOnSuccess(t *testing.T) {
	db, mock, conn := openMockDatabase(t)
	defer conn.Close()

	mock.ExpectBegin()
	// postgres inserts go through Query because GORM appends RETURNING.
	mock.ExpectQuery(`INSERT INTO "order_rows"`).
		WithArgs("store-a", "ORD-3001").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&orderRow{StoreID: "store-a", Number: "ORD-3001"}).Error
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRollsBackOnError(t *testing.T) {
	db, mock, conn := openMockDatabase(t)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.Transaction(func(tx *gorm.DB) error { return assert.AnError })
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	db, mock, conn := openMockDatabase(t)
	defer conn.Close()

	mock.ExpectPing()
	require.NoError(t, db.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPingWithMonitoredConnection(t *testing.T) {
	mockConn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockConn.Close()

	// gorm.Open pings once while dialing, then Ping pings again.
	mock.ExpectPing()
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockConn,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	db := &Database{DB: gormDB}
	mock.ExpectPing()

	require.NoError(t, db.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseReleasesPool(t *testing.T) {
	db, mock, _ := openMockDatabase(t)

	mock.ExpectClose()
	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsSnapshotsPoolCounters(t *testing.T) {
	db, _, conn := openMockDatabase(t)
	defer conn.Close()

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
	assert.GreaterOrEqual(t, stats.InUse, 0)
	assert.GreaterOrEqual(t, stats.Idle, 0)
	assert.GreaterOrEqual(t, stats.WaitCount, int64(0))
	assert.GreaterOrEqual(t, stats.WaitDuration, time.Duration(0))
}
