package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Victor-armando18/pedimento-rules/internal/domain"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/dbctx"
	"github.com/Victor-armando18/pedimento-rules/internal/platform/logger"
)

var testKey = domain.SequenceKey{Year: "26", Office: "24", License: "3420"}

func mockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestSequenceRepo_LockCounterLocksTheRow(t *testing.T) {
	db, mock := mockPostgres(t)
	repo := NewSequenceRepo(db, logger.Nop())

	mock.ExpectQuery(`SELECT \* FROM "sequence_counter" WHERE year_two = \$1 AND office_code = \$2 AND license = \$3 LIMIT .*FOR UPDATE`).
		WithArgs("26", "24", "3420", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "year_two", "office_code", "license", "last_issued"}).
			AddRow(7, "26", "24", "3420", 41))

	counter, err := repo.LockCounter(dbctx.Background(context.Background()), testKey)
	require.NoError(t, err)
	assert.EqualValues(t, 7, counter.ID)
	assert.Equal(t, 41, counter.LastIssued)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceRepo_EnsureCounterIgnoresExisting(t *testing.T) {
	db, mock := mockPostgres(t)
	repo := NewSequenceRepo(db, logger.Nop())

	mock.ExpectQuery(`INSERT INTO "sequence_counter" .*ON CONFLICT \("year_two","office_code","license"\) DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "last_issued"}))

	require.NoError(t, repo.EnsureCounter(dbctx.Background(context.Background()), testKey))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceRepo_UpdateLastIssued(t *testing.T) {
	db, mock := mockPostgres(t)
	repo := NewSequenceRepo(db, logger.Nop())
	dbc := dbctx.Background(context.Background())

	mock.ExpectExec(`UPDATE "sequence_counter" SET "last_issued"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs(42, sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateLastIssued(dbc, 7, 42))

	mock.ExpectExec(`UPDATE "sequence_counter"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateLastIssued(dbc, 8, 1), domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceLog_IsImmutable(t *testing.T) {
	db := openTestDB(t)
	repo := NewSequenceRepo(db, logger.Nop())
	dbc := dbctx.Background(context.Background())

	require.NoError(t, repo.EnsureCounter(dbc, testKey))
	counter, err := repo.GetCounter(dbc, testKey)
	require.NoError(t, err)

	entry := &domain.SequenceLog{CounterID: counter.ID, OldValue: 0, NewValue: 1, Actor: "test"}
	require.NoError(t, repo.AppendLog(dbc, entry))

	err = db.Model(entry).Update("new_value", 5).Error
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	err = db.Delete(entry).Error
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	entries, err := repo.ListLog(dbc, counter.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].NewValue)
}
