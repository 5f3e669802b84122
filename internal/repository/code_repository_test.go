package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dislink/connect-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codeRowColumns = []string{"id", "owner_id", "code_hash", "profile_snapshot", "expires_at", "usage_count", "last_used_at", "superseded_at", "sharing_disabled_at", "created_at"}

func TestCreateCodeSupersedesInSameTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCodeRepository(db)
	expires := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE dislink.connection_codes")).
		WithArgs("owner-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO dislink.connection_codes")).
		WithArgs("owner-1", "hash-1", sqlmock.AnyArg(), expires).
		WillReturnRows(sqlmock.NewRows(codeRowColumns).
			AddRow("code-1", "owner-1", "hash-1", []byte(`{"name":"John Doe","bio":"Engineer"}`), expires, 0, nil, nil, nil, expires.Add(-24*time.Hour)))
	mock.ExpectCommit()

	code, err := repo.CreateCode(context.Background(), models.ConnectionCode{
		OwnerID:   "owner-1",
		CodeHash:  "hash-1",
		Snapshot:  models.ProfileSnapshot{Name: "John Doe", Bio: models.Some("Engineer")},
		ExpiresAt: expires,
	}, true)
	require.NoError(t, err)

	assert.Equal(t, "code-1", code.ID)
	assert.Equal(t, "John Doe", code.Snapshot.Name)
	bio, ok := code.Snapshot.Bio.Get()
	assert.True(t, ok)
	assert.Equal(t, "Engineer", bio)
	assert.False(t, code.Snapshot.Sharing.IsSet())
	assert.Nil(t, code.SupersededAt)
}

func TestCreateCodeRollsBackOnInsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCodeRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO dislink.connection_codes")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.CreateCode(context.Background(), models.ConnectionCode{OwnerID: "owner-1", CodeHash: "h"}, false)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestGetCodeByHashNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCodeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM dislink.connection_codes")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(codeRowColumns))

	_, err := repo.GetCodeByHash(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGetCodeByHashToleratesCorruptSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCodeRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM dislink.connection_codes")).
		WithArgs("hash-1").
		WillReturnRows(sqlmock.NewRows(codeRowColumns).
			AddRow("code-1", "owner-1", "hash-1", []byte(`{"name": 12`), now, 3, now, now, nil, now))

	code, err := repo.GetCodeByHash(context.Background(), "hash-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProfileSnapshot{}, code.Snapshot)
	assert.EqualValues(t, 3, code.UsageCount)
	require.NotNil(t, code.SupersededAt)
	require.NotNil(t, code.LastUsedAt)
}

func TestRecordUsageMissingCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCodeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET usage_count = usage_count + 1")).
		WithArgs("code-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RecordUsage(context.Background(), "code-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDisableSharingOnlyTouchesActiveCodes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCodeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET sharing_disabled_at = now()")).
		WithArgs("owner-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DisableSharing(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestGetCodeByHashReadsSharingDisabledAt(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCodeRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM dislink.connection_codes")).
		WithArgs("hash-1").
		WillReturnRows(sqlmock.NewRows(codeRowColumns).
			AddRow("code-1", "owner-1", "hash-1", []byte(`{"name":"A","sharing":{"enabled":true}}`), now.Add(time.Hour), 0, nil, nil, now, now))

	code, err := repo.GetCodeByHash(context.Background(), "hash-1")
	require.NoError(t, err)
	require.NotNil(t, code.SharingDisabledAt)
	assert.Nil(t, code.SupersededAt)
	assert.False(t, code.IsPublic())
	assert.False(t, code.IsExpired(now))
}
