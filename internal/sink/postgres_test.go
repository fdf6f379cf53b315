package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	domainerr "postimport/internal/domain/errors"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		DriverName:           "postgres",
		Conn:                 db,
		PreferSimpleProtocol: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestPostgresInsertUpserts(t *testing.T) {
	db, mock := newMockDB(t)
	pg := NewPostgres(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "posts" .* ON CONFLICT \("key"\) DO UPDATE SET`).
		WithArgs("hello", "Hello", int64(1619827200), "<p>World</p>", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, pg.Insert(context.Background(), samplePost("Hello")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertWrapsFailure(t *testing.T) {
	db, mock := newMockDB(t)
	pg := NewPostgres(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "posts"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := pg.Insert(context.Background(), samplePost("Hello"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerr.ErrPersistenceFailure)
	assert.NoError(t, mock.ExpectationsWereMet())
}
