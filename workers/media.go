package workers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"broker_inbox/models"
	"broker_inbox/storage"
)

const mediaMaxAttempts = 3

// MediaWorker downloads inbound WhatsApp attachments, hashes them, and
// archives them in S3-compatible storage. Provider media links expire, so
// this is the durable copy.
type MediaWorker struct {
	store      *storage.PostgresStore
	httpClient *http.Client
	uploader   Uploader

	trigger chan struct{}
}

// Uploader stores an object in S3-compatible storage. PublicURL may return
// empty when the store has no addressable location.
type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
	PublicURL(key string) string
}

// NoopUploader keeps the pipeline alive when no bucket is configured: media
// rows are hashed and marked archived without a durable copy.
type NoopUploader struct{}

func (NoopUploader) Upload(ctx context.Context, key string, data io.Reader, contentType string) error {
	return nil
}

func (NoopUploader) PublicURL(key string) string { return "" }

func NewMediaWorker(store *storage.PostgresStore, client *http.Client, uploader Uploader) *MediaWorker {
	if uploader == nil {
		uploader = NoopUploader{}
	}
	return &MediaWorker{
		store:      store,
		httpClient: client,
		uploader:   uploader,
		trigger:    make(chan struct{}, 1),
	}
}

// Trigger requests an immediate pass outside the regular interval
func (w *MediaWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// MediaProcessResult contains the outcome of processing one media item
type MediaProcessResult struct {
	MediaID     uuid.UUID
	S3Key       string
	ContentHash string
	Size        int64
	Error       error
}

// Process downloads one media file, computes its hash, and uploads it
func (w *MediaWorker) Process(ctx context.Context, media *models.Media) MediaProcessResult {
	result := MediaProcessResult{MediaID: media.ID}

	req, err := http.NewRequestWithContext(ctx, "GET", media.OriginalURL, nil)
	if err != nil {
		result.Error = fmt.Errorf("create request: %w", err)
		return result
	}
	req.Header.Set("Accept", "image/*,*/*")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("download: %w", err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		result.Error = fmt.Errorf("download status: %d", resp.StatusCode)
		return result
	}

	// Read into memory for hashing and upload. 50MB covers anything the
	// provider forwards.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 50*1024*1024))
	if err != nil {
		result.Error = fmt.Errorf("read body: %w", err)
		return result
	}

	result.Size = int64(len(data))

	hash := sha256.Sum256(data)
	result.ContentHash = hex.EncodeToString(hash[:])

	// Content-addressed key: identical attachments forwarded across chats
	// dedupe in the bucket.
	ext := guessExtension(media.OriginalURL, resp.Header.Get("Content-Type"))
	result.S3Key = fmt.Sprintf("media/%s/%s%s", result.ContentHash[:2], result.ContentHash, ext)

	contentType := resp.Header.Get("Content-Type")
	if err := w.uploader.Upload(ctx, result.S3Key, bytes.NewReader(data), contentType); err != nil {
		result.Error = fmt.Errorf("upload: %w", err)
		return result
	}

	return result
}

// guessExtension determines the file extension from URL or content-type
func guessExtension(url, contentType string) string {
	ext := strings.ToLower(path.Ext(url))
	if ext != "" && isMediaExt(ext) {
		return ext
	}

	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	case "video/mp4":
		return ".mp4"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".bin"
	}
}

func isMediaExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".pdf", ".mp4", ".ogg":
		return true
	}
	return false
}

// Run starts the media worker loop
func (w *MediaWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Media worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		case <-w.trigger:
			w.processBatch(ctx, batchSize)
		}
	}
}

func (w *MediaWorker) processBatch(ctx context.Context, batchSize int) {
	media, err := w.store.GetPendingMedia(ctx, batchSize)
	if err != nil {
		log.Printf("Media worker: query error: %v", err)
		return
	}
	if len(media) == 0 {
		return
	}

	log.Printf("Media worker: processing %d items", len(media))

	var processed, failed int
	for i := range media {
		m := &media[i]

		result := w.Process(ctx, m)

		if result.Error != nil {
			log.Printf("Media worker: failed %s: %v", m.OriginalURL, result.Error)
			failed++

			newAttempts := m.Attempts + 1
			status := models.MediaStatusPending
			if newAttempts >= mediaMaxAttempts {
				status = models.MediaStatusFailed
			}
			if err := w.store.UpdateMediaStatus(ctx, m.ID, status, nil, "", 0, newAttempts); err != nil {
				log.Printf("Media worker: failed to update %s: %v", m.ID, err)
			}
			continue
		}

		if err := w.store.UpdateMediaStatus(ctx, m.ID, models.MediaStatusArchived,
			&result.S3Key, result.ContentHash, result.Size, m.Attempts); err != nil {
			log.Printf("Media worker: failed to update %s: %v", m.ID, err)
			failed++
			continue
		}
		if url := w.uploader.PublicURL(result.S3Key); url != "" {
			log.Printf("Media worker: archived %s -> %s", m.OriginalURL, url)
		}
		processed++
	}

	log.Printf("Media worker: %d archived, %d failed", processed, failed)
}
