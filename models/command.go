package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdReparse       CommandType = "reparse"
	CmdRunEnrichment CommandType = "run_enrichment"
	CmdRunMedia      CommandType = "run_media"
	CmdExport        CommandType = "export"
)

type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	MessageSID string `json:"message_sid,omitempty"`
	Path       string `json:"path,omitempty"`
}
