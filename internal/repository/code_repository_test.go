package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/handover-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCodeRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCodeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO upload_codes")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	now := time.Now().UTC()
	code := &models.UploadCode{
		Code:      "ABC123XYZ789",
		IssuedBy:  "admin-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), code))

	rows := sqlmock.NewRows([]string{"code", "issued_by", "issued_at", "expires_at", "consumed", "consumed_at"}).
		AddRow(code.Code, code.IssuedBy, code.IssuedAt, code.ExpiresAt, false, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT code, issued_by, issued_at, expires_at, consumed, consumed_at")).
		WithArgs(code.Code).
		WillReturnRows(rows)

	found, err := repo.FindByCode(context.Background(), code.Code)
	require.NoError(t, err)
	require.Equal(t, code.Code, found.Code)
	require.False(t, found.Consumed)
	require.True(t, found.Usable(now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCodeRepositoryFindMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCodeRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT code, issued_by, issued_at, expires_at, consumed, consumed_at")).
		WithArgs("NOPE").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByCode(context.Background(), "NOPE")
	require.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestCodeRepositoryClaim(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCodeRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE upload_codes SET consumed = TRUE")).
		WithArgs("XYZ999", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.Claim(context.Background(), "XYZ999", now)
	require.NoError(t, err)
	require.True(t, claimed)

	// Second claim for the same code matches zero rows.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE upload_codes SET consumed = TRUE")).
		WithArgs("XYZ999", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err = repo.Claim(context.Background(), "XYZ999", now)
	require.NoError(t, err)
	require.False(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCodeRepositoryListRecent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCodeRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"code", "issued_by", "issued_at", "expires_at", "consumed", "consumed_at"}).
		AddRow("NEW001", "admin-1", now, now.Add(24*time.Hour), false, nil).
		AddRow("OLD001", "admin-1", now.Add(-25*time.Hour), now.Add(-time.Hour), false, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM upload_codes ORDER BY issued_at DESC")).
		WithArgs(10).
		WillReturnRows(rows)

	codes, err := repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, codes, 2)
	require.Equal(t, "active", codes[0].State(now))
	require.Equal(t, "expired", codes[1].State(now))
}
