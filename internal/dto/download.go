package dto

import (
	"time"

	"github.com/noah-isme/wms-imagery/internal/models"
)

// DownloadRequest captures POST /downloads payload.
type DownloadRequest struct {
	Start string `json:"start" validate:"required,len=8,numeric"`
	End   string `json:"end" validate:"required,len=8,numeric"`
}

// IntervalsResponse lists the slot labels of one date.
type IntervalsResponse struct {
	Date   string    `json:"date"`
	Final  bool      `json:"final"`
	Now    time.Time `json:"now"`
	Count  int       `json:"count"`
	Labels []string  `json:"labels"`
}

// TileLink is a signed download URL for a saved tile.
type TileLink struct {
	Date      string    `json:"date"`
	Label     string    `json:"label"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RunResponse exposes run progress plus download links for saved tiles.
type RunResponse struct {
	*models.Run
	Links []TileLink `json:"links,omitempty"`
}

// RunRecordsResponse is the fetch ledger view of one run.
type RunRecordsResponse struct {
	RunID   string                    `json:"run_id"`
	Counts  map[models.TileStatus]int `json:"counts"`
	Records []models.FetchRecord      `json:"records"`
}
