// Package templates holds the HTML components of the administrative report.
package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/intake/internal/core"
)

const pageStyle = `body{font-family:Arial,sans-serif;margin:24px;color:#222}
table{border-collapse:collapse;width:100%;margin-bottom:8px}
th,td{border:1px solid #ddd;padding:6px 8px;font-size:14px;text-align:left}
th{background:#f4f4f4}
.meta{color:#666;font-size:13px;margin-bottom:24px}
nav a{margin-right:12px}`

// ReportPage renders every collection of report as a table with paging and
// download links. kinds fixes the section order.
func ReportPage(report core.Report, kinds []core.Kind) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}

		ew.printf(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Submissions Report</title><style>%s</style></head><body>`, pageStyle)
		ew.printf(`<h1>Submissions Report</h1><nav>`)
		ew.printf(`<a href="%s">All</a>`, reportURL(1, report.Size, core.ScopeAll))
		for _, k := range kinds {
			ew.printf(`<a href="%s">%s</a>`, reportURL(1, report.Size, k.Key), templ.EscapeString(k.Label))
		}
		ew.printf(`</nav>`)

		for _, k := range kinds {
			if report.Scope != core.ScopeAll && report.Scope != k.Key {
				continue
			}
			section(ew, report, k, report.Collections[k.ReportKey])
		}

		ew.printf(`</body></html>`)
		return ew.err
	})
}

func section(ew *errWriter, report core.Report, k core.Kind, page core.Page) {
	ew.printf(`<section id="%s"><h2>%s</h2>`, templ.EscapeString(k.Key), templ.EscapeString(k.Label))
	ew.printf(`<div class="meta">%d total &middot; page %d of %d &middot; <a href="%s">Download CSV</a></div>`,
		page.TotalItems, page.CurrentPage, page.TotalPages,
		templ.EscapeString("/report/download/"+url.PathEscape(k.Key)))

	ew.printf(`<table><thead><tr>`)
	for _, c := range k.Columns {
		ew.printf(`<th>%s</th>`, templ.EscapeString(c.Label))
	}
	ew.printf(`<th>Submitted</th></tr></thead><tbody>`)

	if len(page.Records) == 0 {
		ew.printf(`<tr><td colspan="%d">No records</td></tr>`, len(k.Columns)+1)
	}
	for _, rec := range page.Records {
		ew.printf(`<tr>`)
		for _, c := range k.Columns {
			ew.printf(`<td>%s</td>`, templ.EscapeString(rec.Get(c.Name)))
		}
		ew.printf(`<td>%s</td></tr>`, rec.CreatedAt.Format("2006-01-02 15:04"))
	}
	ew.printf(`</tbody></table>`)

	ew.printf(`<nav>`)
	if page.CurrentPage > 1 {
		ew.printf(`<a href="%s">&laquo; Previous</a>`, reportURL(page.CurrentPage-1, report.Size, report.Scope))
	}
	if page.CurrentPage < page.TotalPages {
		ew.printf(`<a href="%s">Next &raquo;</a>`, reportURL(page.CurrentPage+1, report.Size, report.Scope))
	}
	ew.printf(`</nav></section>`)
}

// reportURL builds an escaped link back to the report.
func reportURL(page, size int, scope string) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page))
	v.Set("size", strconv.Itoa(size))
	if scope != "" && scope != core.ScopeAll {
		v.Set("model", scope)
	}
	return templ.EscapeString("/report?" + v.Encode())
}

// errWriter keeps the first write error and drops later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
