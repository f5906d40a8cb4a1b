package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"broker_inbox/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// =============================================================================
// Inquiries
// =============================================================================

// UpsertInquiry inserts or refreshes the raw message record. Conflicts on the
// provider message SID collapse repeated webhook deliveries into one row.
func (s *PostgresStore) UpsertInquiry(ctx context.Context, q *models.Inquiry) error {
	mediaJSON, err := json.Marshal(q.MediaURLs)
	if err != nil {
		return fmt.Errorf("marshal media urls: %w", err)
	}

	query := `
		INSERT INTO inquiries (
			id, message_sid, from_number, to_number, profile_name, body,
			media_urls, enrichment, enrichment_attempts, received_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (message_sid) DO UPDATE SET
			from_number = EXCLUDED.from_number,
			to_number = EXCLUDED.to_number,
			profile_name = COALESCE(NULLIF(EXCLUDED.profile_name, ''), inquiries.profile_name),
			body = EXCLUDED.body,
			media_urls = EXCLUDED.media_urls,
			updated_at = NOW()
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		q.ID, q.MessageSID, q.From, q.To, q.ProfileName, q.Body,
		mediaJSON, q.Enrichment, q.EnrichmentAttempts, q.ReceivedAt, q.UpdatedAt,
	).Scan(&q.ID)
}

func (s *PostgresStore) GetInquiryBySID(ctx context.Context, messageSID string) (*models.Inquiry, error) {
	query := `
		SELECT id, message_sid, from_number, to_number, profile_name, body,
			media_urls, enrichment, enrichment_attempts, received_at, updated_at
		FROM inquiries WHERE message_sid = $1`

	var q models.Inquiry
	var mediaJSON []byte
	err := s.pool.QueryRow(ctx, query, messageSID).Scan(
		&q.ID, &q.MessageSID, &q.From, &q.To, &q.ProfileName, &q.Body,
		&mediaJSON, &q.Enrichment, &q.EnrichmentAttempts, &q.ReceivedAt, &q.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(mediaJSON) > 0 {
		if err := json.Unmarshal(mediaJSON, &q.MediaURLs); err != nil {
			return nil, fmt.Errorf("unmarshal media urls: %w", err)
		}
	}
	return &q, nil
}

// ListInquiries returns every stored inquiry, oldest first. Used by the
// reparse command; extraction is pure, so re-running it over these is safe.
func (s *PostgresStore) ListInquiries(ctx context.Context) ([]models.Inquiry, error) {
	query := `
		SELECT id, message_sid, from_number, to_number, profile_name, body,
			media_urls, enrichment, enrichment_attempts, received_at, updated_at
		FROM inquiries ORDER BY received_at, message_sid`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inquiries []models.Inquiry
	for rows.Next() {
		var q models.Inquiry
		var mediaJSON []byte
		if err := rows.Scan(
			&q.ID, &q.MessageSID, &q.From, &q.To, &q.ProfileName, &q.Body,
			&mediaJSON, &q.Enrichment, &q.EnrichmentAttempts, &q.ReceivedAt, &q.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(mediaJSON) > 0 {
			if err := json.Unmarshal(mediaJSON, &q.MediaURLs); err != nil {
				return nil, fmt.Errorf("unmarshal media urls: %w", err)
			}
		}
		inquiries = append(inquiries, q)
	}
	return inquiries, rows.Err()
}

// GetInquiriesNeedingEnrichment returns inquiries with no enrichment yet and
// fewer than maxAttempts tries, oldest first.
func (s *PostgresStore) GetInquiriesNeedingEnrichment(ctx context.Context, limit, maxAttempts int) ([]models.Inquiry, error) {
	query := `
		SELECT id, message_sid, from_number, to_number, profile_name, body,
			media_urls, enrichment, enrichment_attempts, received_at, updated_at
		FROM inquiries
		WHERE enrichment IS NULL AND enrichment_attempts < $2
		ORDER BY received_at
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inquiries []models.Inquiry
	for rows.Next() {
		var q models.Inquiry
		var mediaJSON []byte
		if err := rows.Scan(
			&q.ID, &q.MessageSID, &q.From, &q.To, &q.ProfileName, &q.Body,
			&mediaJSON, &q.Enrichment, &q.EnrichmentAttempts, &q.ReceivedAt, &q.UpdatedAt,
		); err != nil {
			return nil, err
		}
		inquiries = append(inquiries, q)
	}
	return inquiries, rows.Err()
}

// SetInquiryEnrichment stores the merged enrichment payload for a message.
func (s *PostgresStore) SetInquiryEnrichment(ctx context.Context, messageSID string, enrichment json.RawMessage) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE inquiries SET enrichment = $2, updated_at = NOW() WHERE message_sid = $1`,
		messageSID, enrichment)
	return err
}

// BumpEnrichmentAttempts increments the attempt counter after a failed call.
func (s *PostgresStore) BumpEnrichmentAttempts(ctx context.Context, messageSID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE inquiries SET enrichment_attempts = enrichment_attempts + 1, updated_at = NOW() WHERE message_sid = $1`,
		messageSID)
	return err
}

// =============================================================================
// Listings
// =============================================================================

// UpsertListing inserts or replaces the structured listing derived from one
// message. Re-extraction always overwrites: the extractor is deterministic,
// so the newest pass wins wholesale.
func (s *PostgresStore) UpsertListing(ctx context.Context, l *models.StoredListing) error {
	contactJSON, err := json.Marshal(l.Contact)
	if err != nil {
		return fmt.Errorf("marshal contact: %w", err)
	}
	amenitiesJSON, err := json.Marshal(l.Amenities)
	if err != nil {
		return fmt.Errorf("marshal amenities: %w", err)
	}

	query := `
		INSERT INTO listings (
			row_id, message_sid, listing_id, msg_timestamp, sender,
			property_type, transaction_type, bhk_config, address, pin_code,
			carpet_area, price, price_numeric, condition, floor, possession,
			deposit, parking, contact, amenities, raw_message, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23
		)
		ON CONFLICT (message_sid) DO UPDATE SET
			listing_id = EXCLUDED.listing_id,
			msg_timestamp = EXCLUDED.msg_timestamp,
			sender = EXCLUDED.sender,
			property_type = EXCLUDED.property_type,
			transaction_type = EXCLUDED.transaction_type,
			bhk_config = EXCLUDED.bhk_config,
			address = EXCLUDED.address,
			pin_code = EXCLUDED.pin_code,
			carpet_area = EXCLUDED.carpet_area,
			price = EXCLUDED.price,
			price_numeric = EXCLUDED.price_numeric,
			condition = EXCLUDED.condition,
			floor = EXCLUDED.floor,
			possession = EXCLUDED.possession,
			deposit = EXCLUDED.deposit,
			parking = EXCLUDED.parking,
			contact = EXCLUDED.contact,
			amenities = EXCLUDED.amenities,
			raw_message = EXCLUDED.raw_message,
			updated_at = NOW()
		RETURNING row_id`

	return s.pool.QueryRow(ctx, query,
		l.RowID, l.MessageSID, l.ID, l.Timestamp, l.Sender,
		l.PropertyType, l.TransactionType, l.BHKConfig, l.Address, l.PinCode,
		l.CarpetArea, l.Price, l.PriceNumeric, l.Condition, l.Floor, l.Possession,
		l.Deposit, l.Parking, contactJSON, amenitiesJSON, l.RawMessage,
		l.CreatedAt, l.UpdatedAt,
	).Scan(&l.RowID)
}

func (s *PostgresStore) GetListingBySID(ctx context.Context, messageSID string) (*models.StoredListing, error) {
	query := selectListing + ` WHERE message_sid = $1`

	rows, err := s.pool.Query(ctx, query, messageSID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings, err := scanListings(rows)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, nil
	}
	return &listings[0], nil
}

const selectListing = `
	SELECT row_id, message_sid, listing_id, msg_timestamp, sender,
		property_type, transaction_type, bhk_config, address, pin_code,
		carpet_area, price, price_numeric, condition, floor, possession,
		deposit, parking, contact, amenities, raw_message, created_at, updated_at
	FROM listings`

// ListingQuery is the dashboard's search/filter/sort request
type ListingQuery struct {
	Search          string
	PropertyType    string
	TransactionType string
	PinCode         string
	SortField       string
	SortDesc        bool
	Limit           int
	Offset          int
}

// Whitelisted sort fields. The price field orders by the normalized numeric
// column; everything else sorts lexicographically, case-insensitive.
var sortColumns = map[string]string{
	"id":               "listing_id",
	"timestamp":        "msg_timestamp",
	"sender":           "sender",
	"property_type":    "property_type",
	"transaction_type": "transaction_type",
	"bhk_config":       "bhk_config",
	"address":          "address",
	"pin_code":         "pin_code",
	"carpet_area":      "carpet_area",
	"price":            "price_numeric",
	"price_numeric":    "price_numeric",
	"condition":        "condition",
	"floor":            "floor",
}

// ListListings serves the display surface: free-text search over address,
// config, condition and contacts, equality filters, and whitelisted sorting.
func (s *PostgresStore) ListListings(ctx context.Context, q ListingQuery) ([]models.StoredListing, error) {
	var (
		where []string
		args  []interface{}
	)

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Search != "" {
		p := arg("%" + q.Search + "%")
		where = append(where, fmt.Sprintf(
			"(address ILIKE %[1]s OR bhk_config ILIKE %[1]s OR condition ILIKE %[1]s OR contact::text ILIKE %[1]s)", p))
	}
	if q.PropertyType != "" {
		where = append(where, "property_type = "+arg(q.PropertyType))
	}
	if q.TransactionType != "" {
		where = append(where, "transaction_type = "+arg(q.TransactionType))
	}
	if q.PinCode != "" {
		where = append(where, "pin_code = "+arg(q.PinCode))
	}

	query := selectListing
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	col, ok := sortColumns[q.SortField]
	if !ok {
		col = "msg_timestamp"
	}
	order := col
	if col != "price_numeric" {
		order = "LOWER(" + col + ")"
	}
	query += " ORDER BY " + order
	if q.SortDesc {
		query += " DESC"
	}

	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + arg(q.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanListings(rows)
}

func scanListings(rows pgx.Rows) ([]models.StoredListing, error) {
	var listings []models.StoredListing
	for rows.Next() {
		var l models.StoredListing
		var contactJSON, amenitiesJSON []byte
		if err := rows.Scan(
			&l.RowID, &l.MessageSID, &l.ID, &l.Timestamp, &l.Sender,
			&l.PropertyType, &l.TransactionType, &l.BHKConfig, &l.Address, &l.PinCode,
			&l.CarpetArea, &l.Price, &l.PriceNumeric, &l.Condition, &l.Floor, &l.Possession,
			&l.Deposit, &l.Parking, &contactJSON, &amenitiesJSON, &l.RawMessage,
			&l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(contactJSON) > 0 {
			if err := json.Unmarshal(contactJSON, &l.Contact); err != nil {
				return nil, fmt.Errorf("unmarshal contact: %w", err)
			}
		}
		if len(amenitiesJSON) > 0 {
			if err := json.Unmarshal(amenitiesJSON, &l.Amenities); err != nil {
				return nil, fmt.Errorf("unmarshal amenities: %w", err)
			}
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// GetListingStats aggregates the dashboard summary counts in one pass.
func (s *PostgresStore) GetListingStats(ctx context.Context) (*models.ListingStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE transaction_type = 'Rent'),
			COUNT(*) FILTER (WHERE transaction_type = 'Sale'),
			COUNT(*) FILTER (WHERE property_type = 'Residential'),
			COUNT(DISTINCT pin_code) FILTER (WHERE pin_code <> '')
		FROM listings`

	var stats models.ListingStats
	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.Total, &stats.ForRent, &stats.ForSale, &stats.Residential, &stats.PinCodes,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// =============================================================================
// Media
// =============================================================================

// EnqueueMedia records an inbound attachment for archival. Duplicate URLs on
// the same message are ignored.
func (s *PostgresStore) EnqueueMedia(ctx context.Context, m *models.Media) error {
	query := `
		INSERT INTO media (
			id, message_sid, original_url, s3_key, content_hash, mime_type,
			size_bytes, status, attempts, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (message_sid, original_url) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.MessageSID, m.OriginalURL, m.S3Key, m.ContentHash, m.MimeType,
		m.SizeBytes, m.Status, m.Attempts, m.CreatedAt)
	return err
}

func (s *PostgresStore) GetPendingMedia(ctx context.Context, limit int) ([]models.Media, error) {
	query := `
		SELECT id, message_sid, original_url, s3_key, content_hash, mime_type,
			size_bytes, status, attempts, created_at
		FROM media WHERE status = $1 ORDER BY created_at LIMIT $2`

	rows, err := s.pool.Query(ctx, query, models.MediaStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var media []models.Media
	for rows.Next() {
		var m models.Media
		if err := rows.Scan(
			&m.ID, &m.MessageSID, &m.OriginalURL, &m.S3Key, &m.ContentHash,
			&m.MimeType, &m.SizeBytes, &m.Status, &m.Attempts, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

func (s *PostgresStore) UpdateMediaStatus(ctx context.Context, id uuid.UUID, status string, s3Key *string, contentHash string, sizeBytes int64, attempts int) error {
	query := `
		UPDATE media SET
			status = $2, s3_key = $3, content_hash = $4, size_bytes = $5, attempts = $6
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, status, s3Key, contentHash, sizeBytes, attempts)
	return err
}
