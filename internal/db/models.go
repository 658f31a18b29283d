package db

import (
	"time"

	"github.com/google/uuid"
)

// Sync run statuses
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// SyncRun is one collect-and-upload pass as recorded in the journal.
// Events themselves are never stored.
type SyncRun struct {
	ID              uuid.UUID
	Trigger         string
	RequestID       string
	WindowDays      int
	UnreadOnly      bool
	StartedAt       time.Time
	FinishedAt      *time.Time
	Devices         int
	RowsRead        int
	EventsCollected int
	EventsUploaded  int
	Status          string
	ErrorMessage    *string
}
