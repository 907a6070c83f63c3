package models

import "time"

// RunStatus captures download run lifecycle states.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "QUEUED"
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
)

// Run is one download of every tile in an inclusive date range.
type Run struct {
	ID         string        `json:"id"`
	Start      string        `json:"start"`
	End        string        `json:"end"`
	Status     RunStatus     `json:"status"`
	Total      int           `json:"total"`
	Saved      int           `json:"saved"`
	Failed     int           `json:"failed"`
	CreatedAt  time.Time     `json:"created_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Error      *string       `json:"error,omitempty"`
	Items      []TileOutcome `json:"items,omitempty"`
}

// Done reports whether the run reached a terminal state.
func (r *Run) Done() bool {
	return r.Status == RunStatusFinished || r.Status == RunStatusFailed
}
