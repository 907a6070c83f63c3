package models

import (
	"time"

	"github.com/noah-isme/wms-imagery/pkg/interval"
)

// TileStatus is the outcome of a single fetch-decode-save.
type TileStatus string

const (
	TileStatusSaved   TileStatus = "SAVED"
	TileStatusFailed  TileStatus = "FAILED"
	TileStatusSkipped TileStatus = "SKIPPED"
)

// TileRequest is one planned GetMap request.
type TileRequest struct {
	Date     time.Time
	Label    interval.Label
	URL      string
	Filename string
}

// TileOutcome records what happened to a TileRequest.
type TileOutcome struct {
	Date       string     `json:"date"`
	Label      string     `json:"label"`
	URL        string     `json:"url"`
	Status     TileStatus `json:"status"`
	HTTPStatus int        `json:"http_status,omitempty"`
	File       string     `json:"file,omitempty"`
	Bytes      int        `json:"bytes,omitempty"`
	Error      string     `json:"error,omitempty"`
	FetchedAt  time.Time  `json:"fetched_at"`
}
