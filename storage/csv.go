package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"broker_inbox/models"
)

var csvHeader = []string{
	"id", "timestamp", "sender", "property_type", "transaction_type",
	"bhk_config", "address", "pin_code", "carpet_area", "price",
	"price_numeric", "condition", "floor", "possession", "deposit",
	"parking", "contact", "amenities",
}

// ExportListingsCSV writes the listing collection to a CSV file, one row per
// listing, creating intermediate directories as needed. The file is
// truncated on every export so the dashboard download is always current.
func ExportListingsCSV(path string, listings []models.StoredListing) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("csv: create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for i := range listings {
		l := &listings[i]
		row := []string{
			l.ID,
			l.Timestamp,
			l.Sender,
			string(l.PropertyType),
			string(l.TransactionType),
			l.BHKConfig,
			l.Address,
			l.PinCode,
			l.CarpetArea,
			l.Price,
			strconv.FormatFloat(l.PriceNumeric, 'f', -1, 64),
			l.Condition,
			l.Floor,
			l.Possession,
			l.Deposit,
			strconv.FormatBool(l.Parking),
			strings.Join(l.Contact, "; "),
			strings.Join(l.Amenities, "; "),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}
