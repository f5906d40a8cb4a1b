package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ImportRun records one chat-export import or reparse pass
type ImportRun struct {
	ID            int64      `json:"id" db:"id"`
	Source        string     `json:"source" db:"source"` // webhook, chat_export, reparse
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	FinishedAt    *time.Time `json:"finished_at" db:"finished_at"`
	Status        RunStatus  `json:"status" db:"status"`
	MessagesSeen  int        `json:"messages_seen" db:"messages_seen"`
	ListingsNew   int        `json:"listings_new" db:"listings_new"`
	ListingsSaved int        `json:"listings_saved" db:"listings_saved"`
	ErrorsCount   int        `json:"errors_count" db:"errors_count"`
}

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// RunLog is an operational log line tied to an import run
type RunLog struct {
	ID        int64     `json:"id" db:"id"`
	RunID     *int64    `json:"run_id" db:"run_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Level     LogLevel  `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
}
