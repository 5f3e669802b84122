package repository

import (
	"bytes"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dislink/connect-api/internal/utils"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func newTestSealer(t *testing.T) *utils.Sealer {
	t.Helper()
	s, err := utils.NewSealer(bytes.Repeat([]byte{3}, 32))
	require.NoError(t, err)
	return s
}
