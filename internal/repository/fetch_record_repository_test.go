package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wms-imagery/internal/models"
)

func newFetchRecordRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var fetchRecordColumns = []string{"id", "run_id", "image_date", "label", "url", "status", "http_status", "file_path", "error_message", "fetched_at"}

func TestFetchRecordRepositoryEnsureSchema(t *testing.T) {
	db, mock, cleanup := newFetchRecordRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS wms_fetch_records")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewFetchRecordRepository(db).EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchRecordRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newFetchRecordRepoMock(t)
	defer cleanup()
	repo := NewFetchRecordRepository(db)

	status := 200
	file := "wms_image_20240915_0015.png"
	record := &models.FetchRecord{
		RunID:      "run-1",
		ImageDate:  time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC),
		Label:      "0015",
		URL:        "http://wms.test/0015",
		Status:     models.TileStatusSaved,
		HTTPStatus: &status,
		FilePath:   &file,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wms_fetch_records")).
		WithArgs(sqlmock.AnyArg(), "run-1", record.ImageDate, "0015", "http://wms.test/0015", "SAVED", 200, file, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), record))
	require.NotEmpty(t, record.ID)
	require.False(t, record.FetchedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchRecordRepositoryCreateError(t *testing.T) {
	db, mock, cleanup := newFetchRecordRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wms_fetch_records")).
		WillReturnError(errors.New("connection reset"))

	err := NewFetchRecordRepository(db).Create(context.Background(), &models.FetchRecord{RunID: "run-1", Label: "0015", Status: models.TileStatusFailed})
	require.Error(t, err)
	require.Contains(t, err.Error(), "create fetch record")
}

func TestFetchRecordRepositoryListByRun(t *testing.T) {
	db, mock, cleanup := newFetchRecordRepoMock(t)
	defer cleanup()
	repo := NewFetchRecordRepository(db)

	day := time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(fetchRecordColumns).
		AddRow("rec-1", "run-1", day, "0015", "http://wms.test/0015", "SAVED", 200, "wms_image_20240915_0015.png", nil, time.Now()).
		AddRow("rec-2", "run-1", day, "0045", "http://wms.test/0045", "FAILED", 404, nil, "unexpected status code 404", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, run_id, image_date, label, url, status, http_status, file_path, error_message, fetched_at FROM wms_fetch_records WHERE run_id = $1 ORDER BY image_date ASC, label ASC")).
		WithArgs("run-1").
		WillReturnRows(rows)

	records, err := repo.ListByRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, models.TileStatusSaved, records[0].Status)
	require.NotNil(t, records[0].FilePath)
	require.Nil(t, records[1].FilePath)
	require.Equal(t, 404, *records[1].HTTPStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchRecordRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newFetchRecordRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"status", "total"}).AddRow("SAVED", 46).AddRow("FAILED", 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS total FROM wms_fetch_records WHERE run_id = $1 GROUP BY status")).
		WithArgs("run-1").
		WillReturnRows(rows)

	counts, err := NewFetchRecordRepository(db).CountByStatus(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, 46, counts[models.TileStatusSaved])
	require.Equal(t, 2, counts[models.TileStatusFailed])
	require.NoError(t, mock.ExpectationsWereMet())
}
