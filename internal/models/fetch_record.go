package models

import "time"

// FetchRecord is the ledger row persisted for every tile outcome.
type FetchRecord struct {
	ID           string     `db:"id" json:"id"`
	RunID        string     `db:"run_id" json:"run_id"`
	ImageDate    time.Time  `db:"image_date" json:"image_date"`
	Label        string     `db:"label" json:"label"`
	URL          string     `db:"url" json:"url"`
	Status       TileStatus `db:"status" json:"status"`
	HTTPStatus   *int       `db:"http_status" json:"http_status,omitempty"`
	FilePath     *string    `db:"file_path" json:"file_path,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	FetchedAt    time.Time  `db:"fetched_at" json:"fetched_at"`
}
