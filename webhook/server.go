package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"broker_inbox/models"
	"broker_inbox/services"
	"broker_inbox/storage"
)

// twimlAck is the empty reply the messaging provider expects on success.
// Anything else makes the provider retry or surface an error to the sender.
const twimlAck = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// Processor runs the ingestion fan-out for one validated message
type Processor interface {
	ProcessInbound(ctx context.Context, msg *models.InboundMessage) (*services.ProcessResult, error)
}

// ListingReader serves the dashboard query surface
type ListingReader interface {
	ListListings(ctx context.Context, q storage.ListingQuery) ([]models.StoredListing, error)
	GetListingStats(ctx context.Context) (*models.ListingStats, error)
}

// RunsReader serves import-run history from the operational store
type RunsReader interface {
	GetRecentRuns(limit int) ([]models.ImportRun, error)
	GetRunLogs(runID int64, limit int) ([]models.RunLog, error)
}

// Server exposes the webhook receiver and the read-side API
type Server struct {
	processor     Processor
	listings      ListingReader
	runs          RunsReader
	channelPrefix string

	srv *http.Server
}

func NewServer(addr string, processor Processor, listings ListingReader, runs RunsReader, channelPrefix string) *Server {
	s := &Server{
		processor:     processor,
		listings:      listings,
		runs:          runs,
		channelPrefix: channelPrefix,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /twilio-webhook", s.handleWebhook)
	mux.HandleFunc("GET /api/listings", s.handleListings)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}/logs", s.handleRunLogs)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler exposes the route table for tests
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Start() error {
	log.Printf("Webhook server listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, []string{"malformed form payload"})
		return
	}

	msg, errs := s.parseInbound(r)
	if len(errs) > 0 {
		writeJSONError(w, http.StatusBadRequest, errs)
		return
	}

	result, err := s.processor.ProcessInbound(r.Context(), msg)
	if err != nil {
		log.Printf("Warning: webhook processing failed for %s: %v", msg.MessageSID, err)
		writeJSONError(w, http.StatusInternalServerError, []string{"failed to persist message"})
		return
	}

	if result.IsNewInquiry {
		log.Printf("Stored inquiry %s from %s (%d media)", msg.MessageSID, msg.From, result.MediaQueued)
	} else {
		log.Printf("Redelivery of %s collapsed into existing inquiry", msg.MessageSID)
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, twimlAck)
}

// parseInbound validates the form payload and collects every problem rather
// than stopping at the first.
func (s *Server) parseInbound(r *http.Request) (*models.InboundMessage, []string) {
	msg := &models.InboundMessage{
		MessageSID:  strings.TrimSpace(r.PostFormValue("MessageSid")),
		From:        strings.TrimSpace(r.PostFormValue("From")),
		To:          strings.TrimSpace(r.PostFormValue("To")),
		ProfileName: strings.TrimSpace(r.PostFormValue("ProfileName")),
		Body:        r.PostFormValue("Body"),
	}

	var errs []string
	if msg.MessageSID == "" {
		errs = append(errs, "MessageSid is required")
	}
	if msg.From == "" {
		errs = append(errs, "From is required")
	} else if !strings.HasPrefix(msg.From, s.channelPrefix) {
		errs = append(errs, fmt.Sprintf("From must carry the %q prefix", s.channelPrefix))
	}
	if msg.To == "" {
		errs = append(errs, "To is required")
	} else if !strings.HasPrefix(msg.To, s.channelPrefix) {
		errs = append(errs, fmt.Sprintf("To must carry the %q prefix", s.channelPrefix))
	}
	if strings.TrimSpace(msg.Body) == "" {
		errs = append(errs, "Body is required")
	}

	numMedia, _ := strconv.Atoi(r.PostFormValue("NumMedia"))
	for i := 0; i < numMedia; i++ {
		if u := r.PostFormValue(fmt.Sprintf("MediaUrl%d", i)); u != "" {
			msg.MediaURLs = append(msg.MediaURLs, u)
		}
	}

	return msg, errs
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	query := storage.ListingQuery{
		Search:          params.Get("q"),
		PropertyType:    params.Get("propertyType"),
		TransactionType: params.Get("transactionType"),
		PinCode:         params.Get("pinCode"),
		SortField:       params.Get("sort"),
		SortDesc:        params.Get("dir") == "desc",
		Limit:           queryInt(params.Get("limit"), 200),
		Offset:          queryInt(params.Get("offset"), 0),
	}

	listings, err := s.listings.ListListings(r.Context(), query)
	if err != nil {
		log.Printf("Warning: listing query failed: %v", err)
		writeJSONError(w, http.StatusInternalServerError, []string{"query failed"})
		return
	}
	if listings == nil {
		listings = []models.StoredListing{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"listings": listings,
		"count":    len(listings),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.listings.GetListingStats(r.Context())
	if err != nil {
		log.Printf("Warning: stats query failed: %v", err)
		writeJSONError(w, http.StatusInternalServerError, []string{"query failed"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r.URL.Query().Get("limit"), 20)

	runs, err := s.runs.GetRecentRuns(limit)
	if err != nil {
		log.Printf("Warning: runs query failed: %v", err)
		writeJSONError(w, http.StatusInternalServerError, []string{"query failed"})
		return
	}
	if runs == nil {
		runs = []models.ImportRun{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func (s *Server) handleRunLogs(w http.ResponseWriter, r *http.Request) {
	runID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, []string{"run id must be numeric"})
		return
	}

	logs, err := s.runs.GetRunLogs(runID, queryInt(r.URL.Query().Get("limit"), 200))
	if err != nil {
		log.Printf("Warning: run logs query failed: %v", err)
		writeJSONError(w, http.StatusInternalServerError, []string{"query failed"})
		return
	}
	if logs == nil {
		logs = []models.RunLog{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(val string, defaultVal int) int {
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Warning: failed to encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, errs []string) {
	writeJSON(w, status, map[string]interface{}{"errors": errs})
}
