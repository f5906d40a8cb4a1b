package extract

import (
	"fmt"
	"regexp"
	"strings"

	"broker_inbox/models"
)

// Parser turns raw broker messages into PropertyListing records. It is pure
// and stateless apart from the compiled vocabulary tables, so one instance
// is safe for concurrent use and re-parsing the same input is idempotent.
type Parser struct {
	vocab       Vocabulary
	conditionRe *regexp.Regexp
	localityRe  *regexp.Regexp
	amenities   []amenityEntry
}

type amenityEntry struct {
	needle string // lower-cased keyword for containment tests
	label  string // capitalized display form
}

// New compiles the vocabulary tables into a Parser. Empty tables fall back
// to the built-in defaults so a blank vocab file never disables extraction.
func New(vocab Vocabulary) *Parser {
	defaults := DefaultVocabulary()
	if len(vocab.Amenities) == 0 {
		vocab.Amenities = defaults.Amenities
	}
	if len(vocab.Conditions) == 0 {
		vocab.Conditions = defaults.Conditions
	}
	if len(vocab.Localities) == 0 {
		vocab.Localities = defaults.Localities
	}

	amenities := make([]amenityEntry, 0, len(vocab.Amenities))
	for _, a := range vocab.Amenities {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		amenities = append(amenities, amenityEntry{
			needle: strings.ToLower(a),
			label:  capitalize(a),
		})
	}

	return &Parser{
		vocab:       vocab,
		conditionRe: regexp.MustCompile(`(?i)` + alternation(vocab.Conditions)),
		localityRe:  regexp.MustCompile(`(?i)` + alternation(vocab.Localities) + `[^.\n]*?(?:\s+\d{6})?`),
		amenities:   amenities,
	}
}

// Parse segments a chat-export blob and builds one listing per message, in
// source order. IDs are dense and 1-based within the batch.
func (p *Parser) Parse(blob string) []models.PropertyListing {
	msgs := Segment(blob)
	listings := make([]models.PropertyListing, 0, len(msgs))
	for _, msg := range msgs {
		listings = append(listings, p.Build(msg, len(listings)+1))
	}
	return listings
}

// Build runs every field extractor over one message body and assembles the
// listing. Extractors are independent and never fail the record; a missing
// signal produces the field's documented default.
func (p *Parser) Build(msg models.RawMessage, seq int) models.PropertyListing {
	body := strings.TrimSpace(msg.Body)

	propertyType := ExtractPropertyType(body)
	price, priceNumeric := ExtractPrice(body)

	return models.PropertyListing{
		ID:              fmt.Sprintf("property-%d", seq),
		Timestamp:       strings.TrimSpace(msg.Timestamp),
		Sender:          strings.TrimSpace(msg.Sender),
		PropertyType:    propertyType,
		TransactionType: ExtractTransactionType(body),
		BHKConfig:       ExtractBHKConfig(body, propertyType),
		Address:         p.ExtractAddress(body),
		PinCode:         ExtractPinCode(body),
		CarpetArea:      ExtractCarpetArea(body),
		Price:           price,
		PriceNumeric:    priceNumeric,
		Condition:       p.ExtractCondition(body),
		Floor:           ExtractFloor(body),
		Possession:      ExtractPossession(body),
		Deposit:         ExtractDeposit(body),
		Parking:         ExtractParking(body),
		Contact:         ExtractContacts(body),
		Amenities:       p.ExtractAmenities(body),
		RawMessage:      body,
	}
}

// ExtractAddress tries the location-cue phrase first, then the configured
// locality names. An embedded PIN is stripped from the capture. This is the
// only field with a non-empty default, to keep display predictable.
func (p *Parser) ExtractAddress(body string) string {
	var address string
	if m := addressCueRe.FindStringSubmatch(body); m != nil {
		address = m[1]
	} else if m := p.localityRe.FindStringSubmatch(body); m != nil {
		address = m[1]
	}

	if loc := pinStripRe.FindStringIndex(address); loc != nil {
		address = address[:loc[0]] + address[loc[1]:]
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return models.AddressNotSpecified
	}
	return address
}

// ExtractCondition returns the first vocabulary condition present, verbatim
// as it appears in the text.
func (p *Parser) ExtractCondition(body string) string {
	if m := p.conditionRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}

// ExtractAmenities tests each vocabulary name for case-insensitive
// containment and emits the capitalized form, in vocabulary order. The
// parking amenity and the parking flag are populated independently from the
// same signal.
func (p *Parser) ExtractAmenities(body string) []string {
	lower := strings.ToLower(body)
	var found []string
	for _, a := range p.amenities {
		if strings.Contains(lower, a.needle) {
			found = append(found, a.label)
		}
	}
	return found
}
