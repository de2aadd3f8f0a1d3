package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examhall/internal/analytics"
	"github.com/pavelanni/examhall/internal/sheet"
)

func (h *Handler) handleTestAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.TestReport(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("branch"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleExportResults streams the test's results as an xlsx download,
// best percentage first.
func (h *Handler) handleExportResults(w http.ResponseWriter, r *http.Request) {
	testID := chi.URLParam(r, "id")
	report, err := h.reports.TestReport(r.Context(), testID, r.URL.Query().Get("branch"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := sheet.WriteResults(&buf, analytics.ByPercentage(report.Attempts), h.reports.Passed); err != nil {
		writeError(w, r, fmt.Errorf("export results of %s: %w", testID, err))
		return
	}

	w.Header().Set("Content-Type", sheet.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=test-results-%s.xlsx", testID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write export", "test_id", testID, "error", err)
	}
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.reports.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
