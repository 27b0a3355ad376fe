package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetdesk/internal/models"
)

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestMigrate(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS validation_logs")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecord(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO validation_logs")).
		WithArgs("a@x.com", "risky", 65, 1.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.Record(context.Background(), models.ValidationLog{Email: "a@x.com", Status: models.TierRisky, Score: 65, ProcessingTime: 1.5})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordError(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO validation_logs")).WillReturnError(errors.New("conn reset"))

	err := s.Record(context.Background(), models.ValidationLog{Email: "a@x.com"})
	assert.ErrorContains(t, err, "conn reset")
}

func TestList(t *testing.T) {
	s, mock := newMock(t)
	created := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM validation_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("FROM validation_logs ORDER BY")).
		WithArgs(5, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "status", "score", "processing_time", "created_at"}).
			AddRow(7, "a@x.com", "valid", 95, 2.0, created).
			AddRow(6, "b@x.com", "invalid", 5, 0.5, created))

	page, err := s.List(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	require.Len(t, page.Logs, 2)
	assert.Equal(t, models.TierValid, page.Logs[0].Status)
	assert.Equal(t, int64(6), page.Logs[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryPaging(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		require.NoError(t, m.Record(ctx, models.ValidationLog{Email: fmt.Sprintf("u%d@x.com", i)}))
	}

	first, err := m.List(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, first.Total)
	require.Len(t, first.Logs, 3)
	assert.Equal(t, "u7@x.com", first.Logs[0].Email)
	assert.False(t, first.Logs[0].CreatedAt.IsZero())

	last, err := m.List(ctx, 3, 3)
	require.NoError(t, err)
	require.Len(t, last.Logs, 1)
	assert.Equal(t, "u1@x.com", last.Logs[0].Email)

	beyond, err := m.List(ctx, 9, 3)
	require.NoError(t, err)
	assert.Empty(t, beyond.Logs)

	def, _ := m.List(ctx, 0, 0)
	assert.Len(t, def.Logs, 7)
}

func TestSQLiteRoundTrip(t *testing.T) {
	s, err := Open("sqlite:" + filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Record(ctx, models.ValidationLog{
			Email:     fmt.Sprintf("u%d@x.com", i),
			Status:    models.TierValid,
			Score:     90 + i,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := s.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Logs, 2)
	assert.Equal(t, "u2@x.com", page.Logs[0].Email)
	assert.Equal(t, 92, page.Logs[0].Score)
	assert.True(t, page.Logs[0].CreatedAt.Equal(base.Add(2*time.Minute)))
	require.NoError(t, s.Ping(ctx))
}
