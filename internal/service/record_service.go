package service

import (
	"context"
	"strings"

	"github.com/noah-isme/wms-imagery/internal/dto"
	"github.com/noah-isme/wms-imagery/internal/models"
	appErrors "github.com/noah-isme/wms-imagery/pkg/errors"
)

type fetchRecordReader interface {
	ListByRun(ctx context.Context, runID string) ([]models.FetchRecord, error)
	CountByStatus(ctx context.Context, runID string) (map[models.TileStatus]int, error)
}

// RecordService reads a run's outcomes back from the fetch ledger. The
// ledger outlives the run store, so it answers for expired runs too.
type RecordService struct {
	records fetchRecordReader
}

// NewRecordService constructs the service.
func NewRecordService(records fetchRecordReader) *RecordService {
	return &RecordService{records: records}
}

// ByRun returns every ledger row of a run with per-status totals.
func (s *RecordService) ByRun(ctx context.Context, runID string) (*dto.RunRecordsResponse, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "run id is required")
	}
	records, err := s.records.ListByRun(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read fetch ledger")
	}
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no fetch records for run")
	}
	counts, err := s.records.CountByStatus(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count fetch records")
	}
	return &dto.RunRecordsResponse{RunID: runID, Counts: counts, Records: records}, nil
}
