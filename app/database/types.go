package database

import (
	"time"
)

type Run struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  *time.Time
	Status      string // running, ok, failed
	OutputHash  string
	OutputBytes int64
	Changed     bool
	Error       string
}

type Fetch struct {
	ID             int64
	RunID          int64
	SourceName     string
	SourceURL      string
	Position       int // 1-based merge order
	Attempts       int
	Bytes          int64
	ChannelsKept   int
	ProgrammesKept int
	DurationMs     int64
}
