package core

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/intake/internal/logging"
)

// Paging defaults for the report.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// ScopeAll selects every collection.
const ScopeAll = "all"

// ReportQuery selects one page of each collection.
type ReportQuery struct {
	Page  int
	Size  int
	Scope string // ScopeAll or a kind key
}

// Report holds one page per collection, keyed by the kind's ReportKey.
type Report struct {
	Collections map[string]Page `json:"collections"`
	Page        int             `json:"page"`
	Size        int             `json:"size"`
	Scope       string          `json:"scope"`
}

// ParsePaging parses page and size query values. Unparsable or non-positive
// values fall back to the defaults.
func ParsePaging(pageStr, sizeStr string) (page, size int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = DefaultPage
	}
	size, err = strconv.Atoi(sizeStr)
	if err != nil || size < 1 {
		size = DefaultPageSize
	}
	return page, size
}

// ParseScope returns the kind key named by s, or ScopeAll when s is empty,
// "all", or not a registered kind.
func ParseScope(s string) string {
	if _, ok := Lookup(s); ok {
		return s
	}
	return ScopeAll
}

// Reporter builds paginated reports across all collections.
type Reporter struct {
	store RecordReader
}

// NewReporter creates a reporter reading from store.
func NewReporter(store RecordReader) *Reporter {
	return &Reporter{store: store}
}

// Report fetches the requested page of every in-scope collection
// concurrently. It never fails: a collection outside the scope, or one whose
// read fails, is reported as an empty page with zero totals.
func (r *Reporter) Report(ctx context.Context, q ReportQuery) Report {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Size < 1 {
		q.Size = DefaultPageSize
	}
	q.Scope = ParseScope(q.Scope)

	kinds := Kinds()
	pages := make([]Page, len(kinds))

	// Each goroutine writes only its own slot and never returns an error,
	// so one failing collection cannot cancel the others.
	var g errgroup.Group
	for i, kind := range kinds {
		pages[i] = emptyPage(q.Page)
		if q.Scope != ScopeAll && q.Scope != kind.Key {
			continue
		}
		i, kind := i, kind // per-iteration copies (go directive is below 1.22)
		g.Go(func() error {
			page, err := r.fetch(ctx, kind, q.Page, q.Size)
			if err != nil {
				logging.FromContext(ctx).Error("report collection failed",
					"collection", kind.ReportKey,
					"error", err,
				)
				return nil
			}
			pages[i] = page
			return nil
		})
	}
	_ = g.Wait()

	out := Report{
		Collections: make(map[string]Page, len(kinds)),
		Page:        q.Page,
		Size:        q.Size,
		Scope:       q.Scope,
	}
	for i, kind := range kinds {
		out.Collections[kind.ReportKey] = pages[i]
	}
	return out
}

func (r *Reporter) fetch(ctx context.Context, kind Kind, page, size int) (Page, error) {
	total, err := r.store.Count(ctx, kind)
	if err != nil {
		return Page{}, err
	}

	records := []Record{}
	offset := (page - 1) * size
	if int64(offset) < total {
		records, err = r.store.List(ctx, kind, size, offset)
		if err != nil {
			return Page{}, err
		}
	}

	return Page{
		TotalItems:  total,
		Records:     records,
		TotalPages:  TotalPages(total, size),
		CurrentPage: page,
	}, nil
}

// TotalPages returns ceil(total/size).
func TotalPages(total int64, size int) int {
	if size < 1 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

func emptyPage(page int) Page {
	return Page{Records: []Record{}, CurrentPage: page}
}
