package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"broker_inbox/storage"
)

// enrichmentMaxAttempts caps retries per inquiry; after that the row is left
// alone so a broken upstream cannot grow the queue forever.
const enrichmentMaxAttempts = 3

// ExtractFunc produces supplemental structured fields for one message body.
// Implementations call out to a model endpoint; failures must be returned,
// never swallowed, so the attempt counter advances.
type ExtractFunc func(ctx context.Context, body string) (json.RawMessage, error)

// EnrichmentWorker fills in listing fields the regex extractor cannot see,
// by sending unprocessed message bodies to a generative extraction endpoint.
// Enrichment is strictly additive: the regex-derived listing row is already
// persisted before this worker ever sees the inquiry.
type EnrichmentWorker struct {
	store   *storage.PostgresStore
	extract ExtractFunc
	batch   int

	trigger chan struct{}
}

func NewEnrichmentWorker(store *storage.PostgresStore, extract ExtractFunc, batch int) *EnrichmentWorker {
	if batch <= 0 {
		batch = 10
	}
	return &EnrichmentWorker{
		store:   store,
		extract: extract,
		batch:   batch,
		trigger: make(chan struct{}, 1),
	}
}

// Trigger requests an immediate pass outside the regular interval
func (w *EnrichmentWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run starts the enrichment worker loop
func (w *EnrichmentWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Enrichment worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		case <-w.trigger:
			w.processBatch(ctx)
		}
	}
}

func (w *EnrichmentWorker) processBatch(ctx context.Context) {
	inquiries, err := w.store.GetInquiriesNeedingEnrichment(ctx, w.batch, enrichmentMaxAttempts)
	if err != nil {
		log.Printf("Enrichment worker: query error: %v", err)
		return
	}
	if len(inquiries) == 0 {
		return
	}

	log.Printf("Enrichment worker: processing %d inquiries", len(inquiries))

	for i := range inquiries {
		q := &inquiries[i]

		enriched, err := w.extract(ctx, q.Body)
		if err != nil {
			log.Printf("Enrichment worker: failed %s: %v", q.MessageSID, err)
			if err := w.store.BumpEnrichmentAttempts(ctx, q.MessageSID); err != nil {
				log.Printf("Enrichment worker: failed to bump attempts for %s: %v", q.MessageSID, err)
			}
			continue
		}

		if err := w.store.SetInquiryEnrichment(ctx, q.MessageSID, enriched); err != nil {
			log.Printf("Enrichment worker: failed to store result for %s: %v", q.MessageSID, err)
		}
	}
}

// allowedEnrichmentFields is the contract with the extraction endpoint.
// Anything outside it is dropped before persisting.
var allowedEnrichmentFields = map[string]bool{
	"property_type":    true,
	"transaction_type": true,
	"bhk_config":       true,
	"address":          true,
	"pin_code":         true,
	"carpet_area":      true,
	"price":            true,
	"condition":        true,
	"floor":            true,
	"possession":       true,
	"deposit":          true,
	"parking":          true,
	"amenities":        true,
	"summary":          true,
}

// NewHTTPExtractor returns an ExtractFunc that POSTs the message body to a
// generative extraction endpoint and filters the reply to the allowed field
// set.
func NewHTTPExtractor(client *http.Client, endpoint, apiKey string) ExtractFunc {
	return func(ctx context.Context, body string) (json.RawMessage, error) {
		payload, err := json.Marshal(map[string]string{"message": body})
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("call endpoint: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("endpoint status: %d", resp.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}

		return filterEnrichment(data)
	}
}

// filterEnrichment keeps only the allowed keys from the endpoint reply
func filterEnrichment(data []byte) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parse reply: %w", err)
	}

	filtered := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if allowedEnrichmentFields[k] {
			filtered[k] = v
		}
	}

	out, err := json.Marshal(filtered)
	if err != nil {
		return nil, fmt.Errorf("marshal filtered reply: %w", err)
	}
	return out, nil
}
