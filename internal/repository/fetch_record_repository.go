package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/wms-imagery/internal/models"
)

const fetchRecordSchema = `CREATE TABLE IF NOT EXISTS wms_fetch_records (
	id UUID PRIMARY KEY,
	run_id TEXT NOT NULL,
	image_date DATE NOT NULL,
	label CHAR(4) NOT NULL,
	url TEXT NOT NULL,
	status TEXT NOT NULL,
	http_status INTEGER,
	file_path TEXT,
	error_message TEXT,
	fetched_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_wms_fetch_records_run ON wms_fetch_records (run_id, image_date, label)`

// FetchRecordRepository persists the per-tile fetch ledger.
type FetchRecordRepository struct {
	db *sqlx.DB
}

// NewFetchRecordRepository constructs the repository.
func NewFetchRecordRepository(db *sqlx.DB) *FetchRecordRepository {
	return &FetchRecordRepository{db: db}
}

// EnsureSchema creates the ledger table when missing.
func (r *FetchRecordRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, fetchRecordSchema); err != nil {
		return fmt.Errorf("ensure fetch record schema: %w", err)
	}
	return nil
}

// Create inserts a ledger row, filling id and fetched_at when empty.
func (r *FetchRecordRepository) Create(ctx context.Context, record *models.FetchRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.FetchedAt.IsZero() {
		record.FetchedAt = time.Now().UTC()
	}
	const query = `INSERT INTO wms_fetch_records (id, run_id, image_date, label, url, status, http_status, file_path, error_message, fetched_at)
VALUES (:id, :run_id, :image_date, :label, :url, :status, :http_status, :file_path, :error_message, :fetched_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create fetch record: %w", err)
	}
	return nil
}

// ListByRun returns a run's ledger rows in chronological slot order.
func (r *FetchRecordRepository) ListByRun(ctx context.Context, runID string) ([]models.FetchRecord, error) {
	const query = `SELECT id, run_id, image_date, label, url, status, http_status, file_path, error_message, fetched_at
FROM wms_fetch_records WHERE run_id = $1 ORDER BY image_date ASC, label ASC`
	var records []models.FetchRecord
	if err := r.db.SelectContext(ctx, &records, query, runID); err != nil {
		return nil, fmt.Errorf("list fetch records: %w", err)
	}
	return records, nil
}

// CountByStatus aggregates a run's ledger rows per status.
func (r *FetchRecordRepository) CountByStatus(ctx context.Context, runID string) (map[models.TileStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM wms_fetch_records WHERE run_id = $1 GROUP BY status`
	var rows []struct {
		Status models.TileStatus `db:"status"`
		Total  int               `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("count fetch records: %w", err)
	}
	counts := make(map[models.TileStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
