package repositories

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/auditflow/auditflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupFindingRepositoryTest(t *testing.T) (FindingRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       db,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	return NewFindingRepository(gormDB), mock
}

func TestFindingRepository_UpdateTriageStatus(t *testing.T) {
	repo, mock := setupFindingRepositoryTest(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "findings" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.UpdateTriageStatus(ctx, 3, models.TriageResolved)
		assert.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		// Rejected before any SQL is issued.
		err := repo.UpdateTriageStatus(ctx, 3, models.TriageStatus("SHIPPED"))
		assert.True(t, errors.Is(err, ErrInvalidInput))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "findings" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.UpdateTriageStatus(ctx, 404, models.TriageWontFix)
		assert.True(t, errors.Is(err, ErrNotFound))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFindingRepository_CreateBatch(t *testing.T) {
	repo, mock := setupFindingRepositoryTest(t)
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		// No findings is a valid scan outcome and issues no SQL.
		err := repo.CreateBatch(ctx, nil)
		assert.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		findings := []models.Finding{
			{
				UUID:      "f-1",
				ScanJobID: 1,
				Title:     "Hardcoded credential",
				Category:  models.CategoryAuthentication,
				Severity:  models.SeverityCritical,
				FilePath:  "src/config.js",
				Line:      12,
			},
			{
				UUID:      "f-2",
				ScanJobID: 1,
				Title:     "SQL injection via string concatenation",
				Category:  models.CategoryInjection,
				Severity:  models.SeverityCritical,
				FilePath:  "src/db.js",
				Line:      44,
			},
		}

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "findings"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
		mock.ExpectCommit()

		err := repo.CreateBatch(ctx, findings)
		assert.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFindingRepository_CountBySeverity(t *testing.T) {
	repo, mock := setupFindingRepositoryTest(t)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"severity", "count"}).
		AddRow(string(models.SeverityCritical), 2).
		AddRow(string(models.SeverityHigh), 1).
		AddRow(string(models.SeverityMedium), 4)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT severity, COUNT(*) as count FROM "findings"`)).
		WithArgs(1).
		WillReturnRows(rows)

	counts, err := repo.CountBySeverity(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 2, counts.Critical)
	assert.Equal(t, 1, counts.High)
	assert.Equal(t, 4, counts.Medium)
	assert.Equal(t, 0, counts.Low)
	assert.Equal(t, 7, counts.Total())

	assert.NoError(t, mock.ExpectationsWereMet())
}
