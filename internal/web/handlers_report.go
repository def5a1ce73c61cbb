package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/logging"
	"github.com/JonMunkholm/intake/internal/web/templates"
)

// handleReport renders one page of every collection. It always succeeds;
// collections that cannot be read show as empty.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, size := core.ParsePaging(q.Get("page"), q.Get("size"))

	report := s.reporter.Report(r.Context(), core.ReportQuery{
		Page:  page,
		Size:  size,
		Scope: q.Get("model"),
	})

	if wantsJSON(r) {
		writeJSONStatus(w, http.StatusOK, report)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ReportPage(report, core.Kinds()).Render(r.Context(), w); err != nil {
		respondError(w, r, err, http.StatusInternalServerError, "Error rendering report")
	}
}

// handleDownload sends a whole collection as a CSV attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")

	// Buffer so a failure can still change the status.
	var buf bytes.Buffer
	rows, err := s.exporter.Export(r.Context(), model, &buf)
	switch {
	case errors.Is(err, core.ErrUnknownCollection):
		respondError(w, r, err, http.StatusBadRequest, "Invalid model")
		return
	case errors.Is(err, core.ErrNoRecords):
		respondError(w, r, err, http.StatusNotFound, "No records found")
		return
	case err != nil:
		respondError(w, r, err, http.StatusInternalServerError, "Error downloading records")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, core.ExportFilename(model)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Record-Count", strconv.Itoa(rows))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Error("write export failed", "model", model, "rows", rows, "error", err)
	}
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.URL.Query().Get("format") == "json"
}
