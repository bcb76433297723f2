package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	syncdomain "github.com/restosuite/backend/internal/domain/sync"
)

// newMockSyncJobRepository creates a GormSyncJobRepository with a mocked SQL connection.
// The claim path needs FOR UPDATE SKIP LOCKED, which sqlite cannot parse, so it
// is exercised against the postgres dialector with sqlmock.
func newMockSyncJobRepository(t *testing.T) (*GormSyncJobRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormSyncJobRepository(gormDB), mock, mockDB
}

func TestGormSyncJobRepository_ClaimProcessing(t *testing.T) {
	t.Run("claims pending rows with skip locked", func(t *testing.T) {
		repo, mock, mockDB := newMockSyncJobRepository(t)
		defer mockDB.Close()

		jobID := uuid.New()
		vendorID := uuid.New()
		orderID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows([]string{
			"id", "created_at", "updated_at", "vendor_id", "order_id", "operation",
			"payload", "status", "retry_count", "max_retries", "expires_at",
		}).AddRow(jobID, now, now, vendorID, orderID, "ORDER_CREATE",
			[]byte(`{}`), "PENDING", 0, 5, now.Add(24*time.Hour))

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "sync_jobs" WHERE id IN \(\$1\) AND status = \$2 FOR UPDATE SKIP LOCKED`).
			WithArgs(jobID, "PENDING").
			WillReturnRows(rows)
		mock.ExpectExec(`UPDATE "sync_jobs" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		claimed, err := repo.ClaimProcessing(context.Background(), []uuid.UUID{jobID})
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, syncdomain.JobStatusProcessing, claimed[0].Status)
		assert.NotNil(t, claimed[0].StartedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nothing when rows already claimed", func(t *testing.T) {
		repo, mock, mockDB := newMockSyncJobRepository(t)
		defer mockDB.Close()

		jobID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "sync_jobs" WHERE id IN \(\$1\) AND status = \$2 FOR UPDATE SKIP LOCKED`).
			WithArgs(jobID, "PENDING").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectCommit()

		claimed, err := repo.ClaimProcessing(context.Background(), []uuid.UUID{jobID})
		require.NoError(t, err)
		assert.Empty(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no-op for empty id list", func(t *testing.T) {
		repo, _, mockDB := newMockSyncJobRepository(t)
		defer mockDB.Close()

		claimed, err := repo.ClaimProcessing(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, claimed)
	})
}
