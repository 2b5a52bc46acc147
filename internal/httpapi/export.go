package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/report"
	"github.com/nhle/work-schedule/internal/schedule"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// filtered loads the collection and applies the from/to query range.
// ok is false once a response was written.
func (h *Handler) filtered(w http.ResponseWriter, r *http.Request) ([]model.DailySchedule, bool) {
	days, err := h.store.Load(r.Context())
	if err != nil {
		h.logger.Error("loading schedules for export", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to load schedules")
		return nil, false
	}
	q := r.URL.Query()
	days = schedule.FilterRange(days, q.Get("from"), q.Get("to"))
	if len(days) == 0 {
		writeMessage(w, http.StatusNotFound, "Nothing to export: no days match the current filter")
		return nil, false
	}
	return days, true
}

// ExportText downloads the plain text report.
func (h *Handler) ExportText(w http.ResponseWriter, r *http.Request) {
	days, ok := h.filtered(w, r)
	if !ok {
		return
	}
	attachDisposition(w, "text/plain; charset=utf-8", report.TextFilename(days))
	_, _ = w.Write([]byte(report.Text(days)))
}

// ExportICS downloads the planned events as an iCalendar file.
func (h *Handler) ExportICS(w http.ResponseWriter, r *http.Request) {
	days, ok := h.filtered(w, r)
	if !ok {
		return
	}
	out, err := report.ICS(days, h.now())
	if err != nil {
		writeError(w, err)
		return
	}
	attachDisposition(w, "text/calendar; charset=utf-8", report.ICSFilename(days))
	_, _ = w.Write([]byte(out))
}

// ExportXLSX downloads one spreadsheet row per assignment.
func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	days, ok := h.filtered(w, r)
	if !ok {
		return
	}
	data, err := report.XLSX(days)
	if err != nil {
		writeError(w, err)
		return
	}
	attachDisposition(w, xlsxContentType, report.XLSXFilename(days))
	_, _ = w.Write(data)
}
