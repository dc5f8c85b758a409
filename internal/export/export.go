// Package export renders an item list as a CSV or PDF download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/erazemk/shramba/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Scope selects which items are exported.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeFiltered Scope = "filtered"
)

var header = []string{"Name", "Quantity", "Description"}

// ParseFormat validates a format name. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// ParseScope validates a scope name. Empty means all items.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeFiltered:
		return ScopeFiltered, nil
	default:
		return "", fmt.Errorf("unknown export scope %q", s)
	}
}

// FileName returns the download name of an export.
func FileName(f Format, s Scope) string {
	if f == FormatPDF {
		return "inventory.pdf"
	}
	return "inventory_" + string(s) + ".csv"
}

// ContentType returns the MIME type of a format.
func ContentType(f Format) string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Write renders items in the given format.
func Write(w io.Writer, f Format, items []model.Item) error {
	if f == FormatPDF {
		return WritePDF(w, items)
	}
	return WriteCSV(w, items)
}

// WriteCSV writes a header row and one row per item.
func WriteCSV(w io.Writer, items []model.Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, item := range items {
		if err := cw.Write(row(item)); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

func row(item model.Item) []string {
	return []string{item.Name, strconv.Itoa(item.Quantity), item.Description}
}
