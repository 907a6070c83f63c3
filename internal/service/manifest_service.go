package service

import (
	"fmt"
	"os"
	"path"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/wms-imagery/internal/models"
	appErrors "github.com/noah-isme/wms-imagery/pkg/errors"
	"github.com/noah-isme/wms-imagery/pkg/export"
)

type manifestStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Path(filename string) string
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ManifestDir is the storage subdirectory manifests are written to.
const ManifestDir = "manifests"

var manifestHeaders = []string{"date", "label", "status", "http_status", "file", "error"}

// ManifestResult describes a rendered manifest on disk.
type ManifestResult struct {
	RelativePath string
	Format       models.ManifestFormat
	Size         int
}

// ManifestService renders per-run tile outcomes as CSV or PDF.
type ManifestService struct {
	storage manifestStorage
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewManifestService constructs a ManifestService.
func NewManifestService(storage manifestStorage, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ManifestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ManifestService{storage: storage, csv: csv, pdf: pdf, logger: logger}
}

// Dataset flattens the run items into export rows.
func (s *ManifestService) Dataset(run *models.Run) export.Dataset {
	rows := make([]map[string]string, 0, len(run.Items))
	for _, item := range run.Items {
		status := ""
		if item.HTTPStatus != 0 {
			status = strconv.Itoa(item.HTTPStatus)
		}
		rows = append(rows, map[string]string{
			"date":        item.Date,
			"label":       item.Label,
			"status":      string(item.Status),
			"http_status": status,
			"file":        item.File,
			"error":       item.Error,
		})
	}
	return export.Dataset{Headers: manifestHeaders, Rows: rows}
}

// Generate renders the manifest and stores it under manifests/<run id>.<ext>.
func (s *ManifestService) Generate(run *models.Run, format models.ManifestFormat) (*ManifestResult, error) {
	if run == nil {
		return nil, fmt.Errorf("run nil")
	}
	dataset := s.Dataset(run)

	var (
		payload []byte
		err     error
	)
	switch format {
	case models.ManifestFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ManifestFormatPDF:
		title := fmt.Sprintf("WMS run %s to %s (%d saved, %d failed)", run.Start, run.End, run.Saved, run.Failed)
		payload, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported manifest format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render manifest")
	}

	relPath, err := s.storage.Save(path.Join(ManifestDir, fmt.Sprintf("%s.%s", run.ID, format)), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store manifest")
	}
	s.logger.Info("manifest written", zap.String("run_id", run.ID), zap.String("file", s.storage.Path(relPath)))
	return &ManifestResult{RelativePath: relPath, Format: format, Size: len(payload)}, nil
}

// Open returns a handle to a stored manifest.
func (s *ManifestService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}
