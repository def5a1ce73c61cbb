// Package core holds the submission, reporting and export logic.
//
// Everything is driven by [Kind] descriptors registered at init time. A kind
// names its collection, its ordered columns with their validation rules, its
// optional unique column, its confirmation template and the messages shown to
// submitters:
//
//	core.Register(core.Kind{
//	    Key:      "newsletter",
//	    Table:    "newsletter_subscriptions",
//	    Columns:  []core.Column{{Name: "email", DBColumn: "email", Rules: "required,email"}},
//	    Unique:   "email",
//	    Template: "newsletter",
//	})
//
// # Submissions
//
// [Processor.Submit] validates, renders, persists and then notifies, in that
// order. Uniqueness is enforced by the store, which wraps [ErrDuplicate]; the
// processor turns that into a conflict outcome and sends nothing.
//
// # Reports and exports
//
// [Reporter.Report] fetches one page of each collection concurrently and
// degrades a failing collection to an empty page. [Exporter.Export] writes a
// whole collection as CSV.
//
// # Error Handling
//
// Technical errors are mapped to coded user messages with [MapError]:
//
//   - SUB001-SUB002: submission errors (duplicate, invalid)
//   - DB004-DB006: record store errors
//   - MAIL001-MAIL002: notification errors
//   - RPT001-RPT002: report and export errors
package core
