package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/intake/internal/notify"
)

// Field is a single named value of a record, in the order its kind declares.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is one persisted submission. Records are never mutated after insert.
type Record struct {
	ID        string    `json:"_id"`
	CreatedAt time.Time `json:"createdAt"`
	Fields    []Field   `json:"fields"`
}

// Get returns the value of the named field, or "" if the record has none.
func (r Record) Get(name string) string {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Map returns the record's fields keyed by name.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		m[f.Name] = f.Value
	}
	return m
}

// RecordWriter persists new records.
// Insert must return an error wrapping ErrDuplicate when the kind's unique
// column already holds the submitted value.
type RecordWriter interface {
	Insert(ctx context.Context, kind Kind, fields []Field) (Record, error)
}

// RecordReader reads records back for reporting and export.
// List and All return records newest-first by creation time.
type RecordReader interface {
	Count(ctx context.Context, kind Kind) (int64, error)
	List(ctx context.Context, kind Kind, limit, offset int) ([]Record, error)
	All(ctx context.Context, kind Kind) ([]Record, error)
}

// Store is the full record store contract.
type Store interface {
	RecordWriter
	RecordReader
}

// Dispatcher sends a fully rendered notification.
type Dispatcher interface {
	Send(ctx context.Context, msg notify.Message) (notify.Receipt, error)
}

// Renderer turns a named template and a field set into a notification body.
type Renderer interface {
	Render(name string, fields map[string]string) (string, error)
}

// Status is the outcome class of a submission.
type Status int

const (
	StatusAccepted Status = iota
	StatusConflict
	StatusInvalid
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusConflict:
		return "conflict"
	case StatusInvalid:
		return "invalid"
	default:
		return "failed"
	}
}

// Outcome is the result of processing one submission.
type Outcome struct {
	Status  Status
	Code    int    // HTTP-equivalent status code
	Message string // User-visible message
	Err     error  // Underlying error for Failed/Invalid outcomes
	Record  *Record
	Receipt notify.Receipt
}

// Page is one page of a collection in a report.
type Page struct {
	TotalItems  int64    `json:"totalItems"`
	Records     []Record `json:"records"`
	TotalPages  int      `json:"totalPages"`
	CurrentPage int      `json:"currentPage"`
}
