package extract

import (
	"reflect"
	"testing"

	"broker_inbox/models"
)

func TestParseOfficeRentScenario(t *testing.T) {
	blob := "[9:24 pm, 8/7/2025] Jinesh Hacker House: OFFICE FOR RENT Opp St.John School, CHARAI THANE (w) - 400601 Carpet Area: 1600 Sq.ft Rent: 1,76,000 Previous Tenant: Metropolis Healthcare Lab Condition: Warmshell Possession: August DATTA 8655793033"

	listings := New(DefaultVocabulary()).Parse(blob)
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}

	l := listings[0]
	if l.ID != "property-1" {
		t.Errorf("ID = %q; want property-1", l.ID)
	}
	if l.PropertyType != models.PropertyTypeOffice {
		t.Errorf("PropertyType = %v; want Office", l.PropertyType)
	}
	if l.TransactionType != models.TransactionTypeRent {
		t.Errorf("TransactionType = %v; want Rent", l.TransactionType)
	}
	if l.BHKConfig != "Office Space" {
		t.Errorf("BHKConfig = %q; want Office Space", l.BHKConfig)
	}
	if l.PinCode != "400601" {
		t.Errorf("PinCode = %q; want 400601", l.PinCode)
	}
	if l.CarpetArea != "1600 sq ft" {
		t.Errorf("CarpetArea = %q; want 1600 sq ft", l.CarpetArea)
	}
	if l.Price != "1,76,000" || l.PriceNumeric != 176000 {
		t.Errorf("Price = %q/%v; want 1,76,000/176000", l.Price, l.PriceNumeric)
	}
	if l.Condition != "Warmshell" {
		t.Errorf("Condition = %q; want Warmshell", l.Condition)
	}
	if !reflect.DeepEqual(l.Contact, []string{"8655793033"}) {
		t.Errorf("Contact = %v; want [8655793033]", l.Contact)
	}
	if l.Timestamp != "9:24 pm, 8/7/2025" || l.Sender != "Jinesh Hacker House" {
		t.Errorf("unexpected header fields %q / %q", l.Timestamp, l.Sender)
	}
}

func TestParseBHKShorthandScenario(t *testing.T) {
	blob := "[9:24 pm, 8/7/2025] Jinesh Hacker House: Pakej deal 2 BHK 700 C ₹ 1.30 cr with Parking"

	listings := New(DefaultVocabulary()).Parse(blob)
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}

	l := listings[0]
	if l.BHKConfig != "2 BHK" {
		t.Errorf("BHKConfig = %q; want 2 BHK", l.BHKConfig)
	}
	if l.CarpetArea != "700 sq ft" {
		t.Errorf("CarpetArea = %q; want 700 sq ft (C shorthand)", l.CarpetArea)
	}
	if l.PriceNumeric != 13_000_000 {
		t.Errorf("PriceNumeric = %v; want 13000000", l.PriceNumeric)
	}
	if !l.Parking {
		t.Error("expected parking true")
	}
}

func TestParkingAndAmenitiesFromSameSignal(t *testing.T) {
	p := New(DefaultVocabulary())
	l := p.Build(models.RawMessage{Body: "2 BHK with PARKING and gym membership"}, 1)

	if !l.Parking {
		t.Error("expected parking flag true")
	}

	hasGym, hasParking := false, false
	for _, a := range l.Amenities {
		if a == "Gym" {
			hasGym = true
		}
		if a == "Parking" {
			hasParking = true
		}
	}
	if !hasGym {
		t.Errorf("amenities %v missing capitalized Gym", l.Amenities)
	}
	if !hasParking {
		t.Errorf("amenities %v missing Parking alongside the flag", l.Amenities)
	}
}

func TestAddressFallbacks(t *testing.T) {
	p := New(DefaultVocabulary())

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "known locality",
			body: "OFFICE FOR SALE CHARAI best deal",
			want: "CHARAI",
		},
		{
			name: "no location at all",
			body: "great deal call now",
			want: "Address not specified",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ExtractAddress(tt.body); got != tt.want {
				t.Errorf("ExtractAddress(%q) = %q; want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestParseSampleExportBatch(t *testing.T) {
	p := New(DefaultVocabulary())
	listings := p.Parse(sampleExport)

	if len(listings) != 6 {
		t.Fatalf("expected 6 listings, got %d", len(listings))
	}

	// IDs are dense and 1-based within the batch
	for i, l := range listings {
		want := "property-" + string(rune('1'+i))
		if l.ID != want {
			t.Errorf("listings[%d].ID = %q; want %q", i, l.ID, want)
		}
	}

	// Every record keeps its source text for audit
	for i, l := range listings {
		if l.RawMessage == "" {
			t.Errorf("listings[%d] has empty RawMessage", i)
		}
	}
}

func TestParseIdempotent(t *testing.T) {
	p := New(DefaultVocabulary())

	first := p.Parse(sampleExport)
	second := p.Parse(sampleExport)

	if !reflect.DeepEqual(first, second) {
		t.Error("re-parsing the same input produced different listings")
	}
}

func TestVocabularyOverride(t *testing.T) {
	vocab := DefaultVocabulary()
	vocab.Amenities = []string{"terrace"}
	vocab.Localities = []string{"majiwada"}
	p := New(vocab)

	l := p.Build(models.RawMessage{Body: "TERRACE flat, Majiwada 400605"}, 1)
	if !reflect.DeepEqual(l.Amenities, []string{"Terrace"}) {
		t.Errorf("Amenities = %v; want [Terrace]", l.Amenities)
	}
	if l.Address != "Majiwada" {
		t.Errorf("Address = %q; want Majiwada", l.Address)
	}
}
