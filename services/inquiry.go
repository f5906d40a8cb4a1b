package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"broker_inbox/extract"
	"broker_inbox/models"
)

// InquiryStore is the slice of the domain store the ingestion path needs.
// *storage.PostgresStore satisfies it.
type InquiryStore interface {
	GetInquiryBySID(ctx context.Context, messageSID string) (*models.Inquiry, error)
	UpsertInquiry(ctx context.Context, q *models.Inquiry) error
	ListInquiries(ctx context.Context) ([]models.Inquiry, error)
	GetListingBySID(ctx context.Context, messageSID string) (*models.StoredListing, error)
	UpsertListing(ctx context.Context, l *models.StoredListing) error
	EnqueueMedia(ctx context.Context, m *models.Media) error
}

// InquiryService handles the fan-out for one inbound message: persist the
// raw inquiry, run the extractor, persist the derived listing, and queue any
// attachments. Only the two persistence writes can fail the call; extraction
// never does.
type InquiryService struct {
	store  InquiryStore
	parser *extract.Parser
}

func NewInquiryService(store InquiryStore, parser *extract.Parser) *InquiryService {
	return &InquiryService{store: store, parser: parser}
}

// ProcessResult contains the outcome of processing one message
type ProcessResult struct {
	InquiryID    uuid.UUID
	ListingRowID uuid.UUID
	IsNewInquiry bool
	MediaQueued  int
}

// ProcessInbound persists one webhook message and its derived listing.
// Idempotent: repeated deliveries of the same MessageSID collapse into the
// same rows.
func (s *InquiryService) ProcessInbound(ctx context.Context, msg *models.InboundMessage) (*ProcessResult, error) {
	result := &ProcessResult{}
	now := time.Now()

	existing, err := s.store.GetInquiryBySID(ctx, msg.MessageSID)
	if err != nil {
		return nil, fmt.Errorf("get inquiry: %w", err)
	}

	inquiry := &models.Inquiry{
		ID:          uuid.New(),
		MessageSID:  msg.MessageSID,
		From:        msg.From,
		To:          msg.To,
		ProfileName: msg.ProfileName,
		Body:        msg.Body,
		MediaURLs:   msg.MediaURLs,
		ReceivedAt:  now,
		UpdatedAt:   now,
	}
	if existing != nil {
		inquiry.ID = existing.ID
		inquiry.ReceivedAt = existing.ReceivedAt
	} else {
		result.IsNewInquiry = true
	}

	if err := s.store.UpsertInquiry(ctx, inquiry); err != nil {
		return nil, fmt.Errorf("upsert inquiry: %w", err)
	}
	result.InquiryID = inquiry.ID

	raw := models.RawMessage{
		Timestamp: inquiry.ReceivedAt.Format("3:04 pm, 2/1/2006"),
		Sender:    senderLabel(msg),
		Body:      msg.Body,
	}

	if err := s.saveListing(ctx, msg.MessageSID, raw, 1, result); err != nil {
		return nil, err
	}

	for _, mediaURL := range msg.MediaURLs {
		media := &models.Media{
			ID:          uuid.New(),
			MessageSID:  msg.MessageSID,
			OriginalURL: mediaURL,
			Status:      models.MediaStatusPending,
			CreatedAt:   now,
		}
		if err := s.store.EnqueueMedia(ctx, media); err != nil {
			log.Printf("Warning: failed to queue media %s: %v", mediaURL, err)
			continue
		}
		result.MediaQueued++
	}

	return result, nil
}

// ImportChatExport segments a chat-export blob and runs every message
// through the same pipeline as the webhook. Message SIDs are derived from
// the entry content, so re-importing the same export is idempotent.
func (s *InquiryService) ImportChatExport(ctx context.Context, blob string) (*ProcessStats, error) {
	stats := &ProcessStats{}
	now := time.Now()

	for i, raw := range extract.Segment(blob) {
		sid := exportSID(raw)

		existing, err := s.store.GetInquiryBySID(ctx, sid)
		if err != nil {
			return stats, fmt.Errorf("get inquiry: %w", err)
		}

		inquiry := &models.Inquiry{
			ID:          uuid.New(),
			MessageSID:  sid,
			From:        "chat-export",
			To:          "chat-export",
			ProfileName: raw.Sender,
			Body:        raw.Body,
			ReceivedAt:  now,
			UpdatedAt:   now,
		}
		if existing != nil {
			inquiry.ID = existing.ID
			inquiry.ReceivedAt = existing.ReceivedAt
		}

		if err := s.store.UpsertInquiry(ctx, inquiry); err != nil {
			log.Printf("Warning: failed to upsert inquiry %s: %v", sid, err)
			stats.Errors++
			continue
		}

		result := &ProcessResult{IsNewInquiry: existing == nil}
		if err := s.saveListing(ctx, sid, raw, i+1, result); err != nil {
			log.Printf("Warning: failed to save listing %s: %v", sid, err)
			stats.Errors++
			continue
		}

		stats.Aggregate(result)
	}

	return stats, nil
}

// ReparseAll re-runs the extractor over every stored inquiry and overwrites
// the derived listings. Safe at any time: extraction is pure and
// deterministic. Inquiries imported in one batch share a received_at, so the
// SID tiebreak keeps property-<n> IDs stable across passes.
func (s *InquiryService) ReparseAll(ctx context.Context) (*ProcessStats, error) {
	inquiries, err := s.store.ListInquiries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inquiries: %w", err)
	}

	sort.SliceStable(inquiries, func(i, j int) bool {
		if !inquiries[i].ReceivedAt.Equal(inquiries[j].ReceivedAt) {
			return inquiries[i].ReceivedAt.Before(inquiries[j].ReceivedAt)
		}
		return inquiries[i].MessageSID < inquiries[j].MessageSID
	})

	stats := &ProcessStats{}
	for i, inquiry := range inquiries {
		raw := models.RawMessage{
			Timestamp: inquiry.ReceivedAt.Format("3:04 pm, 2/1/2006"),
			Sender:    inquiry.ProfileName,
			Body:      inquiry.Body,
		}

		result := &ProcessResult{}
		if err := s.saveListing(ctx, inquiry.MessageSID, raw, i+1, result); err != nil {
			log.Printf("Warning: reparse failed for %s: %v", inquiry.MessageSID, err)
			stats.Errors++
			continue
		}
		stats.Aggregate(result)
	}

	return stats, nil
}

func (s *InquiryService) saveListing(ctx context.Context, messageSID string, raw models.RawMessage, seq int, result *ProcessResult) error {
	now := time.Now()

	existing, err := s.store.GetListingBySID(ctx, messageSID)
	if err != nil {
		return fmt.Errorf("get listing: %w", err)
	}

	stored := &models.StoredListing{
		PropertyListing: s.parser.Build(raw, seq),
		RowID:           uuid.New(),
		MessageSID:      messageSID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if existing != nil {
		stored.RowID = existing.RowID
		stored.CreatedAt = existing.CreatedAt
	}

	if err := s.store.UpsertListing(ctx, stored); err != nil {
		return fmt.Errorf("upsert listing: %w", err)
	}

	result.ListingRowID = stored.RowID
	return nil
}

// senderLabel prefers the WhatsApp profile name; the bare number is the
// fallback so the dashboard sender column is never blank.
func senderLabel(msg *models.InboundMessage) string {
	if msg.ProfileName != "" {
		return msg.ProfileName
	}
	return msg.From
}

// exportSID derives a stable message identifier for a chat-export entry so
// re-imports collapse onto the same rows.
func exportSID(raw models.RawMessage) string {
	h := sha256.Sum256([]byte(raw.Timestamp + "\x00" + raw.Sender + "\x00" + raw.Body))
	return "export-" + hex.EncodeToString(h[:12])
}

// ProcessStats tracks aggregate statistics for an import or reparse pass
type ProcessStats struct {
	MessagesSeen  int
	InquiriesNew  int
	ListingsSaved int
	MediaQueued   int
	Errors        int
}

// Aggregate adds a ProcessResult to the stats
func (s *ProcessStats) Aggregate(r *ProcessResult) {
	s.MessagesSeen++
	if r.IsNewInquiry {
		s.InquiriesNew++
	}
	if r.ListingRowID != uuid.Nil {
		s.ListingsSaved++
	}
	s.MediaQueued += r.MediaQueued
}

// ToJSON returns JSON-serializable run metadata
func (s *ProcessStats) ToJSON() json.RawMessage {
	data, _ := json.Marshal(map[string]int{
		"messages_seen":  s.MessagesSeen,
		"inquiries_new":  s.InquiriesNew,
		"listings_saved": s.ListingsSaved,
		"media_queued":   s.MediaQueued,
		"errors":         s.Errors,
	})
	return data
}
