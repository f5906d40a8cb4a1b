package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"broker_inbox/extract"
	"broker_inbox/models"
)

type fakeStore struct {
	inquiries map[string]*models.Inquiry
	listings  map[string]*models.StoredListing
	media     []*models.Media
	listOrder []string // ListInquiries return order; defaults to insertion order

	upsertInquiryErr error
	upsertListingErr error
	enqueueMediaErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		inquiries: make(map[string]*models.Inquiry),
		listings:  make(map[string]*models.StoredListing),
	}
}

func (f *fakeStore) GetInquiryBySID(ctx context.Context, sid string) (*models.Inquiry, error) {
	return f.inquiries[sid], nil
}

func (f *fakeStore) UpsertInquiry(ctx context.Context, q *models.Inquiry) error {
	if f.upsertInquiryErr != nil {
		return f.upsertInquiryErr
	}
	if _, exists := f.inquiries[q.MessageSID]; !exists {
		f.listOrder = append(f.listOrder, q.MessageSID)
	}
	cp := *q
	f.inquiries[q.MessageSID] = &cp
	return nil
}

func (f *fakeStore) ListInquiries(ctx context.Context) ([]models.Inquiry, error) {
	out := make([]models.Inquiry, 0, len(f.listOrder))
	for _, sid := range f.listOrder {
		out = append(out, *f.inquiries[sid])
	}
	return out, nil
}

func (f *fakeStore) GetListingBySID(ctx context.Context, sid string) (*models.StoredListing, error) {
	return f.listings[sid], nil
}

func (f *fakeStore) UpsertListing(ctx context.Context, l *models.StoredListing) error {
	if f.upsertListingErr != nil {
		return f.upsertListingErr
	}
	cp := *l
	f.listings[l.MessageSID] = &cp
	return nil
}

func (f *fakeStore) EnqueueMedia(ctx context.Context, m *models.Media) error {
	if f.enqueueMediaErr != nil {
		return f.enqueueMediaErr
	}
	f.media = append(f.media, m)
	return nil
}

func newTestService(store *fakeStore) *InquiryService {
	return NewInquiryService(store, extract.New(extract.DefaultVocabulary()))
}

func inbound(sid string) *models.InboundMessage {
	return &models.InboundMessage{
		MessageSID:  sid,
		From:        "whatsapp:+919876543210",
		To:          "whatsapp:+14155238886",
		ProfileName: "Thane Broker",
		Body:        "OFFICE FOR RENT CHARAI 400601 Rent: 1,76,000 Call 8655793033",
	}
}

func TestProcessInboundNewMessage(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	msg := inbound("SM1")
	msg.MediaURLs = []string{"https://api.example.com/media/0", "https://api.example.com/media/1"}

	result, err := svc.ProcessInbound(context.Background(), msg)
	if err != nil {
		t.Fatalf("ProcessInbound: %v", err)
	}

	if !result.IsNewInquiry {
		t.Error("first delivery should be a new inquiry")
	}
	if result.MediaQueued != 2 || len(store.media) != 2 {
		t.Errorf("media queued = %d (store %d); want 2", result.MediaQueued, len(store.media))
	}

	listing := store.listings["SM1"]
	if listing == nil {
		t.Fatal("listing not persisted")
	}
	if listing.PropertyType != models.PropertyTypeOffice {
		t.Errorf("PropertyType = %v; want Office", listing.PropertyType)
	}
	if listing.Price != "1,76,000" || listing.PriceNumeric != 176000 {
		t.Errorf("Price = %q/%v; want 1,76,000/176000", listing.Price, listing.PriceNumeric)
	}
	if listing.Sender != "Thane Broker" {
		t.Errorf("Sender = %q; want profile name", listing.Sender)
	}
}

func TestProcessInboundRedelivery(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	first, err := svc.ProcessInbound(context.Background(), inbound("SM1"))
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	firstReceived := store.inquiries["SM1"].ReceivedAt

	time.Sleep(time.Millisecond)
	second, err := svc.ProcessInbound(context.Background(), inbound("SM1"))
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}

	if second.IsNewInquiry {
		t.Error("redelivery should not count as new")
	}
	if second.InquiryID != first.InquiryID {
		t.Error("redelivery must keep the inquiry ID")
	}
	if second.ListingRowID != first.ListingRowID {
		t.Error("redelivery must keep the listing row ID")
	}
	if !store.inquiries["SM1"].ReceivedAt.Equal(firstReceived) {
		t.Error("redelivery must keep the original received_at")
	}
}

func TestProcessInboundMediaFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	store.enqueueMediaErr = errors.New("media table gone")
	svc := newTestService(store)

	msg := inbound("SM1")
	msg.MediaURLs = []string{"https://api.example.com/media/0"}

	result, err := svc.ProcessInbound(context.Background(), msg)
	if err != nil {
		t.Fatalf("media failure must not fail the message: %v", err)
	}
	if result.MediaQueued != 0 {
		t.Errorf("media queued = %d; want 0", result.MediaQueued)
	}
	if store.listings["SM1"] == nil {
		t.Error("listing should still be persisted")
	}
}

func TestProcessInboundPersistenceFailure(t *testing.T) {
	store := newFakeStore()
	store.upsertInquiryErr = errors.New("pool exhausted")

	if _, err := newTestService(store).ProcessInbound(context.Background(), inbound("SM1")); err == nil {
		t.Fatal("inquiry persistence failure must surface")
	}

	store = newFakeStore()
	store.upsertListingErr = errors.New("pool exhausted")
	if _, err := newTestService(store).ProcessInbound(context.Background(), inbound("SM1")); err == nil {
		t.Fatal("listing persistence failure must surface")
	}
}

const testExport = `[9:24 pm, 8/7/2025] Broker A: OFFICE FOR RENT CHARAI 400601 Rent: 1,76,000 Call 8655793033
[9:31 pm, 8/7/2025] Broker B: 2 BHK Thane ₹ 85 lac with Parking
[9:40 pm, 8/7/2025] Broker C: Shop for sale Ghodbunder 400615 Price: 1.2 cr`

func TestImportChatExportIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	first, err := svc.ImportChatExport(context.Background(), testExport)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if first.MessagesSeen != 3 || first.InquiriesNew != 3 {
		t.Errorf("first pass stats = %+v; want 3 seen, 3 new", first)
	}

	second, err := svc.ImportChatExport(context.Background(), testExport)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if second.InquiriesNew != 0 {
		t.Errorf("re-import created %d new inquiries; want 0", second.InquiriesNew)
	}
	if len(store.inquiries) != 3 || len(store.listings) != 3 {
		t.Errorf("store has %d inquiries / %d listings; want 3 / 3",
			len(store.inquiries), len(store.listings))
	}
}

func TestReparseAssignsStableIDs(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	if _, err := svc.ImportChatExport(context.Background(), testExport); err != nil {
		t.Fatalf("import: %v", err)
	}

	// Batch imports share one received_at; shuffle the store's iteration
	// order to prove the IDs don't depend on it.
	stats, err := svc.ReparseAll(context.Background())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if stats.ListingsSaved != 3 {
		t.Fatalf("listings saved = %d; want 3", stats.ListingsSaved)
	}
	firstIDs := make(map[string]string, 3)
	for sid, l := range store.listings {
		firstIDs[sid] = l.ID
	}

	store.listOrder = []string{store.listOrder[2], store.listOrder[0], store.listOrder[1]}
	if _, err := svc.ReparseAll(context.Background()); err != nil {
		t.Fatalf("second reparse: %v", err)
	}

	for sid, l := range store.listings {
		if l.ID != firstIDs[sid] {
			t.Errorf("listing %s ID changed across reparses: %s -> %s", sid, firstIDs[sid], l.ID)
		}
	}
}
