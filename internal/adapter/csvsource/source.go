// Package csvsource reads the observation table from a CSV file.
package csvsource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/ndvi-aggregation-service/internal/domain"
	"github.com/gocarina/gocsv"
)

// FileSource reads every row of a CSV file with a header line. Columns are
// matched by name, so extra columns are ignored and missing ones arrive blank.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a source for the CSV at path.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	return &FileSource{path: path, logger: logger}
}

// Records implements domain.RecordSource.
func (s *FileSource) Records(ctx context.Context) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	s.logger.Debug("dataset read", "path", s.path, "rows", len(records))
	return records, nil
}

// Decode parses CSV rows from r.
func Decode(r io.Reader) ([]domain.RawRecord, error) {
	var records []domain.RawRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}
	return records, nil
}

// Encode writes records to w with a header line.
func Encode(w io.Writer, records []domain.RawRecord) error {
	if err := gocsv.Marshal(&records, w); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	return nil
}
