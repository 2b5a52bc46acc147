package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/work-schedule/internal/credential"
	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/sync"
)

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// GetSchedules returns the whole collection.
func (h *Handler) GetSchedules(w http.ResponseWriter, r *http.Request) {
	days, err := h.store.Load(r.Context())
	if err != nil {
		h.logger.Error("loading schedules", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to load schedules")
		return
	}
	if days == nil {
		days = []model.DailySchedule{}
	}
	writeJSON(w, http.StatusOK, days)
}

// PutSchedules replaces the whole collection.
func (h *Handler) PutSchedules(w http.ResponseWriter, r *http.Request) {
	var days []model.DailySchedule
	if err := readBodyJSON(w, r, h.maxBody, &days); err != nil {
		writeBodyError(w, "invalid schedules payload: ", err)
		return
	}
	if days == nil {
		days = []model.DailySchedule{}
	}
	for _, d := range days {
		if d.Date == "" {
			continue
		}
		if _, err := model.ParseDate(d.Date); err != nil {
			writeMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid date %q for schedule %s", d.Date, d.ID))
			return
		}
	}
	if err := h.store.SaveAll(r.Context(), days); err != nil {
		h.logger.Error("saving schedules", zap.Int("schedules", len(days)), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to save schedules")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// SendSchedule exports one stored day to QB Time and records it as sent.
// A day already sent is only re-sent with ?force=true.
func (h *Handler) SendSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := credential.WithToken(r.Context(), bearerToken(r))
	force := r.URL.Query().Get("force") == "true"

	s := sync.New(h.store, h.cache, h.exporter, time.Hour, h.logger)
	s.Load(ctx)
	if st := s.Status(); st.DB == sync.StatusError {
		h.logger.Error("loading schedules for send", zap.Error(st.Err))
		writeMessage(w, http.StatusInternalServerError, "Failed to load schedules")
		return
	}

	dir := h.references.Snapshot()
	if len(dir.Jobs) == 0 || len(dir.Technicians) == 0 {
		var err error
		dir, err = h.references.Refresh(ctx)
		if err != nil && (len(dir.Jobs) == 0 || len(dir.Technicians) == 0) {
			writeError(w, err)
			return
		}
	}

	res, err := s.SendDay(ctx, r.PathValue("id"), dir, func(string) bool { return force })
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Flush(ctx); err != nil {
		writeMessage(w, http.StatusInternalServerError, "Failed to save schedules")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
