// Package export serializes canonical record sets to at-rest formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/leadharvest/leadharvest/internal/harvest"
	"github.com/leadharvest/leadharvest/internal/telemetry"
)

// Format is a supported output encoding.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat converts user input into a Format.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q", raw)
	}
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	return string(f)
}

// header is the fixed CSV column order.
var header = []string{"name", "address", "phone", "website", "email", "rating", "review_count", "source"}

// Exporter writes record sets to files. Writing is all-or-nothing: output
// lands in a temporary file first and is renamed into place only after a
// complete, flushed write.
type Exporter struct {
	logger *zap.Logger
}

// New returns an Exporter.
func New(logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{logger: logger}
}

// Export serializes records in the given format to destination. On any
// failure the destination is left untouched.
func (e *Exporter) Export(records []harvest.Record, format Format, destination string) error {
	dir := filepath.Dir(destination)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create export dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return fmt.Errorf("create temp export file: %w", err)
	}
	tmpName := tmp.Name()

	if err := e.write(tmp, records, format); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("flush export file: %w", err)
	}
	if err := os.Rename(tmpName, destination); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("place export file %s: %w", destination, err)
	}

	e.logger.Info("export written",
		zap.String("format", string(format)),
		zap.String("destination", destination),
		zap.Int("records", len(records)),
	)
	telemetry.ObserveExport(string(format), len(records))
	return nil
}

func (e *Exporter) write(w io.Writer, records []harvest.Record, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatJSON:
		return WriteJSON(w, records)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteCSV writes a header row plus one row per record. encoding/csv
// quotes fields containing the delimiter.
func WriteCSV(w io.Writer, records []harvest.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{r.Name, r.Address, r.Phone, r.Website, r.Email, r.Rating, r.ReviewCount, string(r.Source)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for %q: %w", r.Name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteJSON writes an indented array of record objects. An empty set
// serializes as [].
func WriteJSON(w io.Writer, records []harvest.Record) error {
	if records == nil {
		records = []harvest.Record{}
	}
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	payload = append(payload, '\n')
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
