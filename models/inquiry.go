package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// InboundMessage is the validated payload of one webhook call
type InboundMessage struct {
	MessageSID  string   `json:"message_sid"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	ProfileName string   `json:"profile_name"`
	Body        string   `json:"body"`
	MediaURLs   []string `json:"media_urls"`
}

// Inquiry is the persisted raw message record, keyed by the provider-issued
// message SID so repeated webhook deliveries collapse into one row.
type Inquiry struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	MessageSID         string          `json:"message_sid" db:"message_sid"`
	From               string          `json:"from" db:"from_number"`
	To                 string          `json:"to" db:"to_number"`
	ProfileName        string          `json:"profile_name" db:"profile_name"`
	Body               string          `json:"body" db:"body"`
	MediaURLs          []string        `json:"media_urls" db:"media_urls"`
	Enrichment         json.RawMessage `json:"enrichment" db:"enrichment"`
	EnrichmentAttempts int             `json:"enrichment_attempts" db:"enrichment_attempts"`
	ReceivedAt         time.Time       `json:"received_at" db:"received_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// StoredListing wraps a PropertyListing with its persistence envelope
type StoredListing struct {
	PropertyListing
	RowID      uuid.UUID `json:"row_id" db:"row_id"`
	MessageSID string    `json:"message_sid" db:"message_sid"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Media is an inbound attachment queued for archival
type Media struct {
	ID          uuid.UUID `json:"id" db:"id"`
	MessageSID  string    `json:"message_sid" db:"message_sid"`
	OriginalURL string    `json:"original_url" db:"original_url"`
	S3Key       *string   `json:"s3_key" db:"s3_key"` // nullable until uploaded
	ContentHash string    `json:"content_hash" db:"content_hash"`
	MimeType    string    `json:"mime_type" db:"mime_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	Status      string    `json:"status" db:"status"`
	Attempts    int       `json:"attempts" db:"attempts"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Media status
const (
	MediaStatusPending  = "pending"
	MediaStatusArchived = "archived"
	MediaStatusFailed   = "failed"
)
