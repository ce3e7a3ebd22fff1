package domain

import "time"

// RunStatus enumerates pipeline run lifecycle states.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSuccess   RunStatus = "success"
	RunEmpty     RunStatus = "empty"
	RunNoResults RunStatus = "no_results"
	RunError     RunStatus = "error"
)

// RunHandle identifies a persisted run record. A zero ID means nothing was persisted.
type RunHandle struct {
	ID        int64
	StartedAt time.Time
}

// Persisted reports whether the handle refers to a stored run.
func (h RunHandle) Persisted() bool {
	return h.ID > 0
}

// RunOutcome is written once when a run reaches a terminal status.
type RunOutcome struct {
	Status       RunStatus
	ArticleCount int
	DigestCount  int
	Error        string
}

// RunReport summarizes a finished run for the caller (scheduler or CLI).
type RunReport struct {
	RunID        string
	Status       RunStatus
	ArticleCount int
	DigestCount  int
	Digest       Digest
}
