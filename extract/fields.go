package extract

import (
	"regexp"
	"strings"

	"broker_inbox/models"
)

var (
	officeRe     = regexp.MustCompile(`(?i)office`)
	commercialRe = regexp.MustCompile(`(?i)office|commercial|shop|retail`)
	rentRe       = regexp.MustCompile(`(?i)rent|rental`)
	bhkRe        = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*bhk`)

	// A standalone 6-digit run; word boundaries keep it from matching the
	// leading digits of a 10-digit phone number.
	pinRe      = regexp.MustCompile(`\b(\d{6})\b`)
	pinStripRe = regexp.MustCompile(`\d{6}`)

	// Carpet area candidates, tried in order: labelled sqft, bare sqft,
	// then the broker "C" shorthand (e.g. "700 C").
	areaMatchers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:carpet|area).*?(\d+)\s*(?:sq\.?\s*ft|sqft)`),
		regexp.MustCompile(`(?i)(\d+)\s*(?:sq\.?\s*ft|sqft)`),
		regexp.MustCompile(`(?i)(\d+)\s*c(?:\s|$)`),
	}

	floorRe      = regexp.MustCompile(`(?i)(\d+)(?:st|nd|rd|th)?\s*floor`)
	parkingRe    = regexp.MustCompile(`(?i)parking`)
	contactRe    = regexp.MustCompile(`\d{10}`)
	possessionRe = regexp.MustCompile(`(?i)possession[:\s]*([^.\n]+)`)
	depositRe    = regexp.MustCompile(`(?i)deposit[:\s-]*([^.\n]+)`)

	// Phrase following a location cue, up to the next stop token.
	addressCueRe = regexp.MustCompile(`(?i)(?:~|at|near|opp|location)\s+([^.\n]+?)(?:\s+\d{6}|project|rent|₹|carpet|available)`)
)

// ExtractPropertyType classifies the listing. "office" wins over the generic
// commercial signals; no commercial signal at all means Residential.
func ExtractPropertyType(body string) models.PropertyType {
	if commercialRe.MatchString(body) {
		if officeRe.MatchString(body) {
			return models.PropertyTypeOffice
		}
		return models.PropertyTypeCommercial
	}
	return models.PropertyTypeResidential
}

// ExtractTransactionType defaults to Sale; only an explicit rent keyword
// flips it.
func ExtractTransactionType(body string) models.TransactionType {
	if rentRe.MatchString(body) {
		return models.TransactionTypeRent
	}
	return models.TransactionTypeSale
}

// ExtractBHKConfig returns "N BHK" from the first BHK occurrence (decimals
// like 2.5 allowed). Without one the field stays populated with a
// type-appropriate label.
func ExtractBHKConfig(body string, pt models.PropertyType) string {
	if m := bhkRe.FindStringSubmatch(body); m != nil {
		return m[1] + " BHK"
	}
	if pt == models.PropertyTypeOffice {
		return "Office Space"
	}
	return "Commercial Space"
}

// ExtractPinCode returns the first standalone 6-digit run, or empty.
func ExtractPinCode(body string) string {
	if m := pinRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}

// ExtractCarpetArea renders the first area hit as "<N> sq ft", the unit the
// dashboard displays regardless of how the broker wrote it.
func ExtractCarpetArea(body string) string {
	for _, re := range areaMatchers {
		if m := re.FindStringSubmatch(body); m != nil {
			return m[1] + " sq ft"
		}
	}
	return ""
}

// ExtractFloor returns the first "<N>(st|nd|rd|th) floor" occurrence as
// "<N> Floor", or empty.
func ExtractFloor(body string) string {
	if m := floorRe.FindStringSubmatch(body); m != nil {
		return m[1] + " Floor"
	}
	return ""
}

// ExtractParking reports whether the word parking appears anywhere.
func ExtractParking(body string) bool {
	return parkingRe.MatchString(body)
}

// ExtractContacts returns every distinct 10-digit run in order of first
// appearance. Duplicates collapse; order is stable.
func ExtractContacts(body string) []string {
	matches := contactRe.FindAllString(body, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	contacts := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		contacts = append(contacts, m)
	}
	return contacts
}

// ExtractPossession captures the text after "possession:" up to the next
// sentence boundary.
func ExtractPossession(body string) string {
	if m := possessionRe.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ExtractDeposit captures the text after "deposit:"/"deposit -" up to the
// next sentence boundary.
func ExtractDeposit(body string) string {
	if m := depositRe.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
