package model

import "time"

// RunStatus represents the state of a batch reconciliation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusAborted  RunStatus = "aborted"
)

// RecordStatus is the terminal state of one reconciled record.
type RecordStatus string

const (
	RecordFound    RecordStatus = "found"
	RecordNotFound RecordStatus = "not_found"
	RecordSkipped  RecordStatus = "skipped"
)

// RunCounts tallies record outcomes for one run.
type RunCounts struct {
	Total           int `json:"total" yaml:"total"`
	Matched         int `json:"matched" yaml:"matched"`
	AlreadyAssigned int `json:"already_assigned" yaml:"already_assigned"`
	NotFound        int `json:"not_found" yaml:"not_found"`
	Ambiguous       int `json:"ambiguous" yaml:"ambiguous"`
	Skipped         int `json:"skipped" yaml:"skipped"`
}

// Run is one batch reconciliation pass over a dataset.
type Run struct {
	ID         string     `json:"id" yaml:"id"`
	Dataset    string     `json:"dataset" yaml:"dataset"`
	Status     RunStatus  `json:"status" yaml:"status"`
	Counts     RunCounts  `json:"counts" yaml:"counts"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}
