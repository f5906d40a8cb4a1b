package extract

import (
	"regexp"
	"strconv"
	"strings"

	"broker_inbox/models"
)

// Price expressions are tried in order; the first hit wins. Prefixed forms
// ("Rent: ...", "Price - ...") beat a bare currency symbol, which beats a
// bare number with a unit word.
var priceMatchers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:rent|price)[:\s-]*₹?\s*([₹\d,.\s]+(?:lac|cr|k|lakh|crore)?)`),
	regexp.MustCompile(`(?i)₹\s*([₹\d,.\s]+(?:lac|cr|k|lakh|crore)?)`),
	regexp.MustCompile(`(?i)(\d+(?:,\d+)*)\s*(?:lac|cr|k|lakh|crore)`),
}

var (
	priceCleaner = strings.NewReplacer("₹", "", ",", "", " ", "", "\t", "", "\n", "")
	leadingNumRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

	croreRe = regexp.MustCompile(`(?i)cr|crore`)
	lakhRe  = regexp.MustCompile(`(?i)lac|lakh`)
	thouRe  = regexp.MustCompile(`(?i)k`)
)

// ExtractPrice pulls a price expression out of the body. The capture class
// can legally match pure whitespace (a prefix word with no amount after it,
// as in "FOR RENT Opp ..."), so digit-less captures are skipped and the scan
// continues. A miss is normal: it yields the "Price on request" sentinel
// with numeric zero.
func ExtractPrice(body string) (display string, numeric float64) {
	for _, re := range priceMatchers {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			expr := strings.TrimSpace(m[1])
			if !strings.ContainsAny(expr, "0123456789") {
				continue
			}
			return expr, ConvertPrice(expr)
		}
	}
	return models.PriceOnRequest, 0
}

// ConvertPrice normalizes a captured price expression to rupees. Currency
// symbols, commas, and whitespace are stripped before the leading decimal is
// parsed; the unit word scales it per the Indian numbering convention
// (lakh = 1e5, crore = 1e7). Input with no digits yields 0.
func ConvertPrice(expr string) float64 {
	clean := priceCleaner.Replace(expr)
	numStr := leadingNumRe.FindString(clean)
	if numStr == "" {
		return 0
	}

	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0
	}

	switch {
	case croreRe.MatchString(expr):
		return num * 10_000_000
	case lakhRe.MatchString(expr):
		return num * 100_000
	case thouRe.MatchString(expr):
		return num * 1_000
	}
	return num
}
