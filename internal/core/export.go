package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// TimeLayout is how createdAt is written in exports and notifications.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Exporter writes whole collections as CSV.
type Exporter struct {
	store RecordReader
}

// NewExporter creates an exporter reading from store.
func NewExporter(store RecordReader) *Exporter {
	return &Exporter{store: store}
}

// ExportFilename returns the download filename for a collection.
func ExportFilename(collection string) string {
	return collection + ".csv"
}

// Export writes every record of the named collection to w as CSV and returns
// the number of data rows. The header is _id, the kind's fields in order,
// then createdAt. It returns ErrUnknownCollection for an unregistered key and
// ErrNoRecords when the collection is empty; nothing is written in either case.
func (e *Exporter) Export(ctx context.Context, collection string, w io.Writer) (int, error) {
	kind, ok := Lookup(collection)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	records, err := e.store.All(ctx, kind)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", collection, err)
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoRecords, collection)
	}

	header := exportHeader(kind)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for _, rec := range records {
		row[0] = rec.ID
		for i, col := range kind.Columns {
			row[i+1] = sanitizeCell(rec.Get(col.Name))
		}
		row[len(row)-1] = rec.CreatedAt.UTC().Format(TimeLayout)
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("write row %s: %w", rec.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}
	return len(records), nil
}

func exportHeader(kind Kind) []string {
	header := make([]string, 0, len(kind.Columns)+2)
	header = append(header, "_id")
	header = append(header, kind.ColumnNames()...)
	return append(header, "createdAt")
}

// sanitizeCell drops invalid UTF-8 so spreadsheet imports don't choke.
func sanitizeCell(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}
