package domain

import "time"

type SyncRunStatus string

const (
	SyncRunStatusSucceeded SyncRunStatus = "succeeded"
	SyncRunStatusFailed    SyncRunStatus = "failed"
)

// SyncRun is the audit record of one synchronization pass.
type SyncRun struct {
	ID          string
	Marketplace string
	Account     string
	UpdateCount int
	Status      SyncRunStatus
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}
