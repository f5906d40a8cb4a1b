package extract

import "testing"

func TestConvertPrice(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"85 lac", 8_500_000},
		{"1.2 Crore", 12_000_000},
		{"53000", 53000},
		{"1,76,000", 176000},
		{"₹ 1.30 cr", 13_000_000},
		{"85 k", 85_000},
		{"1 Lakh", 100_000},
		{"2.5 Lakh/month", 250_000},
		{"", 0},
		{"negotiable", 0},
		{"₹", 0},
	}

	for _, tt := range tests {
		if got := ConvertPrice(tt.expr); got != tt.want {
			t.Errorf("ConvertPrice(%q) = %v; want %v", tt.expr, got, tt.want)
		}
	}
}

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantDisplay string
		wantNumeric float64
	}{
		{
			name:        "rent prefixed with separators",
			body:        "Carpet Area: 1600 Sq.ft Rent: 1,76,000 Previous Tenant: X",
			wantDisplay: "1,76,000",
			wantNumeric: 176000,
		},
		{
			// A rent keyword with no amount after it must not shadow the
			// real price later in the body.
			name:        "amountless rent keyword before the real price",
			body:        "OFFICE FOR RENT Opp St.John School, CHARAI THANE (w) - 400601 Carpet Area: 1600 Sq.ft Rent: 1,76,000 Previous Tenant: Metropolis",
			wantDisplay: "1,76,000",
			wantNumeric: 176000,
		},
		{
			name:        "bare currency symbol with unit",
			body:        "2 BHK 700 C ₹ 1.30 cr Pakej with Parking",
			wantDisplay: "1.30 cr",
			wantNumeric: 13_000_000,
		},
		{
			name:        "rent dash form",
			body:        "Beautiful Condition & Parking. Rent - 85 k Deposit - 6 Months.",
			wantDisplay: "85 k",
			wantNumeric: 85_000,
		},
		{
			name:        "plain rent amount",
			body:        "asking Rent 53000 Nego please Call",
			wantDisplay: "53000",
			wantNumeric: 53000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			display, numeric := ExtractPrice(tt.body)
			if display != tt.wantDisplay {
				t.Errorf("display = %q; want %q", display, tt.wantDisplay)
			}
			if numeric != tt.wantNumeric {
				t.Errorf("numeric = %v; want %v", numeric, tt.wantNumeric)
			}
		})
	}
}

func TestExtractPriceMiss(t *testing.T) {
	bodies := []string{
		"2 BHK near station, call for details",
		"",
		"Spacious flat with garden view",
	}
	for _, body := range bodies {
		display, numeric := ExtractPrice(body)
		if display != "Price on request" || numeric != 0 {
			t.Errorf("ExtractPrice(%q) = (%q, %v); want (Price on request, 0)", body, display, numeric)
		}
	}
}
