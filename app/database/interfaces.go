package database

import (
	"time"
)

const (
	RunStatusRunning = "running"
	RunStatusOK      = "ok"
	RunStatusFailed  = "failed"
)

type RunRepository interface {
	CreateRun(startedAt time.Time) (int64, error)
	FinishRun(runID int64, status string, outputHash string, outputBytes int64, changed bool, runErr string) error
	RecordFetch(fetch Fetch) error
	GetLastSuccessfulRun() (*Run, error)
	GetFetches(runID int64) ([]Fetch, error)
}
