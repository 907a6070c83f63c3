package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/wms-imagery/internal/dto"
	"github.com/noah-isme/wms-imagery/internal/models"
	appErrors "github.com/noah-isme/wms-imagery/pkg/errors"
	"github.com/noah-isme/wms-imagery/pkg/interval"
	"github.com/noah-isme/wms-imagery/pkg/jobs"
	"github.com/noah-isme/wms-imagery/pkg/wms"
)

type tileFetcher interface {
	Fetch(ctx context.Context, url string) (*wms.Result, error)
}

type tileWriter interface {
	SaveWith(filename string, fn func(io.Writer) error) (string, error)
	Path(filename string) string
}

type requestURLBuilder interface {
	Build(date time.Time, label interval.Label) (string, error)
}

type fetchRecordStore interface {
	Create(ctx context.Context, record *models.FetchRecord) error
}

type runStore interface {
	Save(ctx context.Context, run *models.Run) error
	Get(ctx context.Context, id string) (*models.Run, error)
}

// DownloadServiceConfig tunes the fetch worker pool.
type DownloadServiceConfig struct {
	Workers  int
	Location *time.Location
}

// DownloadService plans and executes tile downloads over date ranges.
type DownloadService struct {
	fetcher   tileFetcher
	writer    tileWriter
	urls      requestURLBuilder
	runs      runStore
	records   fetchRecordStore
	clock     interval.Clock
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DownloadServiceConfig

	inflight sync.WaitGroup
}

// NewDownloadService constructs the download service. records may be nil to
// disable the fetch ledger.
func NewDownloadService(fetcher tileFetcher, writer tileWriter, urls requestURLBuilder, runs runStore, records fetchRecordStore, clock interval.Clock, metrics *MetricsService, logger *zap.Logger, cfg DownloadServiceConfig) *DownloadService {
	if clock == nil {
		clock = interval.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &DownloadService{
		fetcher:   fetcher,
		writer:    writer,
		urls:      urls,
		runs:      runs,
		records:   records,
		clock:     clock,
		metrics:   metrics,
		validator: validator.New(),
		logger:    logger,
		cfg:       cfg,
	}
}

// Location is the zone calendar dates are interpreted in.
func (s *DownloadService) Location() *time.Location {
	return s.cfg.Location
}

// Intervals enumerates the slot labels of a YYYYMMDD date against the service clock.
func (s *DownloadService) Intervals(rawDate string, final bool) (*dto.IntervalsResponse, error) {
	date, err := interval.ParseDate(rawDate, s.cfg.Location)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	labels := interval.Enumerate(date, final, now)
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.String()
	}
	return &dto.IntervalsResponse{
		Date:   interval.FormatDate(date),
		Final:  final,
		Now:    now,
		Count:  len(out),
		Labels: out,
	}, nil
}

// Plan lists every request of the range in chronological order. The clock is
// read once per day.
func (s *DownloadService) Plan(rng interval.DateRange) ([]models.TileRequest, error) {
	days := rng.Days()
	plan := make([]models.TileRequest, 0, len(days)*interval.MaxSlotsPerDay)
	for _, day := range days {
		for _, label := range interval.Enumerate(day.Date, day.Final, s.clock.Now()) {
			url, err := s.urls.Build(day.Date, label)
			if err != nil {
				return nil, fmt.Errorf("build url for %s %s: %w", interval.FormatDate(day.Date), label, err)
			}
			plan = append(plan, models.TileRequest{
				Date:     day.Date,
				Label:    label,
				URL:      url,
				Filename: wms.Filename(day.Date, label),
			})
		}
	}
	return plan, nil
}

// Run downloads the whole range and blocks until every item has an outcome
// or ctx is cancelled.
func (s *DownloadService) Run(ctx context.Context, rng interval.DateRange) (*models.Run, error) {
	run := s.newRun(rng)
	s.saveRun(ctx, run)
	err := s.execute(ctx, run, rng)
	return run, err
}

// StartRequest validates an API payload and starts a background run.
func (s *DownloadService) StartRequest(ctx context.Context, req dto.DownloadRequest) (*models.Run, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "start and end must be YYYYMMDD dates")
	}
	rng, err := interval.ParseDateRange(req.Start, req.End, s.cfg.Location)
	if err != nil {
		return nil, err
	}
	return s.Start(ctx, rng)
}

// Start persists a QUEUED run and executes it in the background.
func (s *DownloadService) Start(ctx context.Context, rng interval.DateRange) (*models.Run, error) {
	if s.runs == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "run store not configured")
	}
	run := s.newRun(rng)
	if err := s.runs.Save(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist run")
	}
	snapshot := *run

	bg := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.execute(bg, run, rng); err != nil {
			s.logger.Warn("download run ended early", zap.String("run_id", run.ID), zap.Error(err))
		}
	}()
	return &snapshot, nil
}

// Get returns the latest snapshot of a run.
func (s *DownloadService) Get(ctx context.Context, id string) (*models.Run, error) {
	if s.runs == nil {
		return nil, appErrors.ErrNotFound
	}
	run, err := s.runs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load run")
	}
	return run, nil
}

// Wait blocks until background runs finish or ctx expires.
func (s *DownloadService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *DownloadService) newRun(rng interval.DateRange) *models.Run {
	return &models.Run{
		ID:        uuid.NewString(),
		Start:     interval.FormatDate(rng.Start),
		End:       interval.FormatDate(rng.End),
		Status:    models.RunStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
}

// progressEvery controls how often a running snapshot is persisted.
const progressEvery = 12

type tileJob struct {
	index int
	req   models.TileRequest
}

func (s *DownloadService) execute(ctx context.Context, run *models.Run, rng interval.DateRange) error {
	s.metrics.RunStarted()
	defer s.metrics.RunFinished()

	plan, err := s.Plan(rng)
	if err != nil {
		s.finish(ctx, run, models.RunStatusFailed, err)
		return err
	}

	run.Status = models.RunStatusRunning
	run.Total = len(plan)
	run.Items = make([]models.TileOutcome, len(plan))
	s.saveRun(ctx, run)
	var mu sync.Mutex
	completed := make(chan struct{}, len(plan))
	queue := jobs.NewQueue("tiles-"+run.ID, func(ctx context.Context, job jobs.Job) error {
		defer func() { completed <- struct{}{} }()
		tj := job.Payload.(tileJob)
		outcome := s.fetchTile(ctx, run.ID, tj.req)

		mu.Lock()
		run.Items[tj.index] = outcome
		if outcome.Status == models.TileStatusSaved {
			run.Saved++
		} else {
			run.Failed++
		}
		if (run.Saved+run.Failed)%progressEvery == 0 {
			s.saveRun(ctx, run)
		}
		mu.Unlock()

		if outcome.Status != models.TileStatusSaved {
			return errors.New(outcome.Error)
		}
		return nil
	}, jobs.QueueConfig{Workers: s.cfg.Workers, Logger: s.logger})
	s.logger.Info("download run started",
		zap.String("run_id", run.ID),
		zap.String("start", run.Start),
		zap.String("end", run.End),
		zap.Int("tiles", len(plan)),
		zap.Int("workers", queue.Workers()),
	)
	queue.Start(ctx)

	var cause error
	enqueued := 0
	for i, req := range plan {
		job := jobs.Job{ID: interval.FormatDate(req.Date) + "_" + req.Label.String(), Type: "wms_tile", Payload: tileJob{index: i, req: req}}
		if err := queue.Enqueue(job); err != nil {
			cause = err
			break
		}
		enqueued++
	}

wait:
	for received := 0; received < enqueued; {
		select {
		case <-completed:
			received++
		case <-ctx.Done():
			cause = ctx.Err()
			break wait
		}
	}
	queue.Stop()

	missing := 0
	for i := range run.Items {
		if run.Items[i].Status != "" {
			continue
		}
		missing++
		req := plan[i]
		run.Items[i] = models.TileOutcome{
			Date:   interval.FormatDate(req.Date),
			Label:  req.Label.String(),
			URL:    req.URL,
			Status: models.TileStatusSkipped,
		}
	}
	if missing > 0 {
		if cause == nil {
			cause = fmt.Errorf("%d tiles were not processed", missing)
		}
		for i := range run.Items {
			if run.Items[i].Status == models.TileStatusSkipped {
				run.Items[i].Error = cause.Error()
			}
		}
		s.finish(ctx, run, models.RunStatusFailed, cause)
		return cause
	}

	s.finish(ctx, run, models.RunStatusFinished, nil)
	return nil
}

func (s *DownloadService) finish(ctx context.Context, run *models.Run, status models.RunStatus, cause error) {
	now := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &now
	if cause != nil {
		msg := cause.Error()
		run.Error = &msg
	}
	s.saveRun(context.WithoutCancel(ctx), run)
	s.logger.Info("download run finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("total", run.Total),
		zap.Int("saved", run.Saved),
		zap.Int("failed", run.Failed),
	)
}

func (s *DownloadService) saveRun(ctx context.Context, run *models.Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Save(ctx, run); err != nil {
		s.logger.Warn("persist run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// fetchTile performs one fetch-decode-save. Failures are reported in the
// outcome and never retried.
func (s *DownloadService) fetchTile(ctx context.Context, runID string, req models.TileRequest) models.TileOutcome {
	start := time.Now()
	outcome := models.TileOutcome{
		Date:      interval.FormatDate(req.Date),
		Label:     req.Label.String(),
		URL:       req.URL,
		Status:    models.TileStatusFailed,
		FetchedAt: start.UTC(),
	}
	fields := []zap.Field{
		zap.String("run_id", runID),
		zap.String("date", outcome.Date),
		zap.String("timestamp", outcome.Label),
	}

	res, err := s.fetcher.Fetch(ctx, req.URL)
	if res != nil {
		outcome.HTTPStatus = res.StatusCode
		outcome.Bytes = res.Bytes
	}

	metricOutcome := FetchOutcomeSaved
	switch {
	case err != nil && errors.Is(err, appErrors.ErrUnexpectedStatus):
		metricOutcome = FetchOutcomeHTTPError
		outcome.Error = err.Error()
		s.logger.Warn("failed to fetch image", append(fields, zap.Int("status_code", outcome.HTTPStatus))...)
	case err != nil && errors.Is(err, appErrors.ErrDecode):
		metricOutcome = FetchOutcomeDecodeError
		outcome.Error = err.Error()
		s.logger.Warn("failed to decode image", append(fields, zap.Error(err))...)
	case err != nil:
		metricOutcome = FetchOutcomeTransportError
		outcome.Error = err.Error()
		s.logger.Warn("failed to fetch image", append(fields, zap.Error(err))...)
	default:
		if _, werr := s.writer.SaveWith(req.Filename, func(w io.Writer) error {
			return wms.EncodePNG(w, res.Image)
		}); werr != nil {
			metricOutcome = FetchOutcomeWriteError
			outcome.Error = werr.Error()
			s.logger.Error("failed to save image", append(fields, zap.Error(werr))...)
			break
		}
		outcome.Status = models.TileStatusSaved
		outcome.File = req.Filename
		s.logger.Info("image saved", append(fields, zap.String("file", s.writer.Path(req.Filename)))...)
	}

	s.metrics.ObserveFetch(metricOutcome, time.Since(start), outcome.Bytes)
	s.record(ctx, runID, req, outcome)
	return outcome
}

func (s *DownloadService) record(ctx context.Context, runID string, req models.TileRequest, outcome models.TileOutcome) {
	if s.records == nil {
		return
	}
	rec := &models.FetchRecord{
		RunID:     runID,
		ImageDate: req.Date,
		Label:     outcome.Label,
		URL:       outcome.URL,
		Status:    outcome.Status,
		FetchedAt: outcome.FetchedAt,
	}
	if outcome.HTTPStatus != 0 {
		code := outcome.HTTPStatus
		rec.HTTPStatus = &code
	}
	if outcome.File != "" {
		file := outcome.File
		rec.FilePath = &file
	}
	if outcome.Error != "" {
		msg := outcome.Error
		rec.ErrorMessage = &msg
	}
	if err := s.records.Create(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("record fetch outcome failed", zap.String("run_id", runID), zap.String("timestamp", outcome.Label), zap.Error(err))
	}
}
