package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sjsage522/listingscout/internal/listing"
)

// File names written into the output directory
const (
	AllFile = "listings.csv"
	NewFile = "new_listings.csv"
)

// Exporter hands a run's listings to a downstream format
type Exporter interface {
	Export(all, fresh []listing.Listing) error
}

// Header is shared by both listing kinds; cells that do not apply stay empty.
var Header = []string{
	"id", "source", "kind", "title", "company", "location", "pay",
	"price", "currency", "status", "url",
	"business_score", "server_score", "tags", "description", "fetched_at",
}

// CSVExporter writes listings.csv and new_listings.csv
type CSVExporter struct {
	dir string
}

// NewCSVExporter creates an exporter writing into dir
func NewCSVExporter(dir string) *CSVExporter {
	return &CSVExporter{dir: dir}
}

// Export rewrites both files
func (e *CSVExporter) Export(all, fresh []listing.Listing) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := writeFile(filepath.Join(e.dir, AllFile), all); err != nil {
		return err
	}
	return writeFile(filepath.Join(e.dir, NewFile), fresh)
}

func writeFile(path string, listings []listing.Listing) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return err
	}
	for _, l := range listings {
		if err := w.Write(Row(l)); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// Row renders one listing in Header order
func Row(l listing.Listing) []string {
	var price, currency string
	if l.Price != nil {
		price = strconv.FormatFloat(l.Price.Amount, 'f', 2, 64)
		currency = l.Price.Currency
	}
	var fetched string
	if !l.FetchedAt.IsZero() {
		fetched = l.FetchedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		l.ID, string(l.Source), string(l.Kind), l.Title, l.Company, l.Location, l.Pay,
		price, currency, string(l.Status), l.CanonicalURL,
		score(l, listing.ScoreBusiness), score(l, listing.ScoreServer),
		strings.Join(l.Tags, ", "), l.Description, fetched,
	}
}

func score(l listing.Listing, name string) string {
	v, ok := l.Scores[name]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
