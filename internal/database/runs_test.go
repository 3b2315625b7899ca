package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockExecer is a mock for the database connection
type MockExecer struct {
	mock.Mock
}

func (m *MockExecer) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	mockArgs := m.Called(ctx, sql, args)
	return pgconn.NewCommandTag(mockArgs.String(0)), mockArgs.Error(1)
}

func sqlContains(fragment string) interface{} {
	return mock.MatchedBy(func(sql string) bool { return strings.Contains(sql, fragment) })
}

func TestRunRepository(t *testing.T) {
	ctx := context.Background()
	runID := uuid.New()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	t.Run("ensure schema", func(t *testing.T) {
		db := new(MockExecer)
		db.On("Exec", ctx, sqlContains("CREATE TABLE IF NOT EXISTS scrape_run"), mock.Anything).Return("CREATE TABLE", nil)

		require.NoError(t, NewRunRepository(db).EnsureSchema(ctx))
		db.AssertExpectations(t)
	})

	t.Run("start run", func(t *testing.T) {
		db := new(MockExecer)
		db.On("Exec", ctx, sqlContains("INSERT INTO scrape_run"), []interface{}{runID, now, 5}).Return("INSERT 0 1", nil)

		require.NoError(t, NewRunRepository(db).StartRun(ctx, runID, 5, now))
		db.AssertExpectations(t)
	})

	t.Run("record result", func(t *testing.T) {
		db := new(MockExecer)
		rec := ResultRecord{
			RunID:      runID,
			URL:        "https://acme.test/orbit",
			Group:      "Acme",
			Success:    false,
			Error:      "extraction failed",
			FinishedAt: now,
		}
		db.On("Exec", ctx, sqlContains("INSERT INTO scrape_result"),
			[]interface{}{runID, rec.URL, "Acme", false, 0, "extraction failed", now},
		).Return("INSERT 0 1", nil)

		require.NoError(t, NewRunRepository(db).RecordResult(ctx, rec))
		db.AssertExpectations(t)
	})

	t.Run("finish run", func(t *testing.T) {
		db := new(MockExecer)
		db.On("Exec", ctx, sqlContains("UPDATE scrape_run"), []interface{}{runID, now, 3}).Return("UPDATE 1", nil)

		require.NoError(t, NewRunRepository(db).FinishRun(ctx, runID, 3, now))
		db.AssertExpectations(t)
	})

	t.Run("finish unknown run", func(t *testing.T) {
		db := new(MockExecer)
		db.On("Exec", ctx, mock.Anything, mock.Anything).Return("UPDATE 0", nil)

		err := NewRunRepository(db).FinishRun(ctx, runID, 3, now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("exec failure is wrapped", func(t *testing.T) {
		db := new(MockExecer)
		db.On("Exec", ctx, mock.Anything, mock.Anything).Return("", errors.New("connection reset"))

		err := NewRunRepository(db).StartRun(ctx, runID, 1, now)
		require.Error(t, err)
		assert.Equal(t, "failed to insert run: connection reset", err.Error())
	})
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "scraper", Password: "p@ss", Database: "fidgets"}
	assert.Equal(t, "postgres://scraper:p%40ss@db:5432/fidgets?sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}
