package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/nhle/work-schedule/internal/credential"
	"github.com/nhle/work-schedule/internal/directory"
	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/qbtime"
)

type tokenBody struct {
	Token string `json:"token"`
}

// decode reads the body into out and returns a context carrying the
// per-request token, if any. ok is false once a response was written.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, out any, token func() string) (context.Context, bool) {
	if out != nil {
		if err := readBodyJSON(w, r, h.maxBody, out); err != nil {
			writeBodyError(w, "invalid request body: ", err)
			return nil, false
		}
	}
	bodyToken := ""
	if token != nil {
		bodyToken = token()
	}
	return credential.WithToken(r.Context(), requestToken(r, bodyToken)), true
}

// TokenStatus reports whether a server-side token is configured. The
// token itself is never returned.
func (h *Handler) TokenStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"configured": credential.Configured(r.Context(), h.creds),
	})
}

// Connect validates a token and returns the account owner.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var body tokenBody
	ctx, ok := h.decode(w, r, &body, func() string { return body.Token })
	if !ok {
		return
	}

	token, _ := credential.FromContext(ctx)
	if token == "" && h.creds != nil {
		token, _ = h.creds.Token(ctx)
	}

	user, err := h.directory.Connect(ctx, token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connected": true, "user": user})
}

// ProjectManagers lists the members of the PM group.
func (h *Handler) ProjectManagers(w http.ResponseWriter, r *http.Request) {
	var body tokenBody
	ctx, ok := h.decode(w, r, &body, func() string { return body.Token })
	if !ok {
		return
	}
	pms, err := h.directory.FetchProjectManagers(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pms": pms})
}

// Technicians lists the members of the technician group.
func (h *Handler) Technicians(w http.ResponseWriter, r *http.Request) {
	var body tokenBody
	ctx, ok := h.decode(w, r, &body, func() string { return body.Token })
	if !ok {
		return
	}
	techs, err := h.directory.FetchTechnicians(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"techs": techs})
}

// Jobs lists every active jobcode.
func (h *Handler) Jobs(w http.ResponseWriter, r *http.Request) {
	var body tokenBody
	ctx, ok := h.decode(w, r, &body, func() string { return body.Token })
	if !ok {
		return
	}
	jobs, err := h.directory.FetchJobs(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// CustomFields lists the active custom fields with their items.
func (h *Handler) CustomFields(w http.ResponseWriter, r *http.Request) {
	var body tokenBody
	ctx, ok := h.decode(w, r, &body, func() string { return body.Token })
	if !ok {
		return
	}
	fields, err := h.directory.FetchCustomFields(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customFields": fields})
}

// CustomFieldItems lists every item of one custom field.
func (h *Handler) CustomFieldItems(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token         string `json:"token"`
		CustomFieldID any    `json:"customfield_id"`
	}
	ctx, ok := h.decode(w, r, &body, func() string { return body.Token })
	if !ok {
		return
	}
	fieldID := idString(body.CustomFieldID)
	if fieldID == "" {
		writeMessage(w, http.StatusBadRequest, "customfield_id is required")
		return
	}
	items, err := h.directory.FetchCustomFieldItems(ctx, fieldID)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []model.CustomFieldItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// ScheduleEvents lists raw schedule events. An account without calendars
// is reported in the body with an empty list rather than as a failure.
func (h *Handler) ScheduleEvents(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token               string `json:"token"`
		Start               string `json:"start"`
		End                 string `json:"end"`
		ScheduleCalendarIDs string `json:"schedule_calendar_ids"`
	}
	ctx, ok := h.decode(w, r, &body, func() string { return body.Token })
	if !ok {
		return
	}
	list, err := h.qb.ListScheduleEvents(ctx, qbtime.EventQuery{
		Start:       body.Start,
		End:         body.End,
		CalendarIDs: body.ScheduleCalendarIDs,
	})
	if errors.Is(err, qbtime.ErrNoCalendars) {
		writeJSON(w, http.StatusOK, map[string]any{
			"error":  "No schedule calendars found",
			"events": []any{},
			"total":  0,
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// TimesheetsList lists recent timesheets.
func (h *Handler) TimesheetsList(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token     string `json:"token"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		Limit     int    `json:"limit"`
	}
	ctx, ok := h.decode(w, r, &body, func() string { return body.Token })
	if !ok {
		return
	}
	list, err := h.qb.ListTimesheets(ctx, qbtime.TimesheetQuery{
		StartDate: body.StartDate,
		EndDate:   body.EndDate,
		Limit:     body.Limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateScheduleEvents posts pre-resolved entries.
func (h *Handler) CreateScheduleEvents(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token   string                      `json:"token"`
		Entries []qbtime.ScheduleEventEntry `json:"entries"`
	}
	ctx, ok := h.decode(w, r, &body, func() string { return body.Token })
	if !ok {
		return
	}
	if len(body.Entries) == 0 {
		writeMessage(w, http.StatusBadRequest, "No schedule event entries provided")
		return
	}
	res, err := h.qb.CreateScheduleEvents(ctx, body.Entries)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateTimesheets posts timesheet entries with custom field defaults.
func (h *Handler) CreateTimesheets(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token   string                  `json:"token"`
		Entries []qbtime.TimesheetEntry `json:"entries"`
	}
	ctx, ok := h.decode(w, r, &body, func() string { return body.Token })
	if !ok {
		return
	}
	if len(body.Entries) == 0 {
		writeMessage(w, http.StatusBadRequest, "No timesheet entries provided")
		return
	}
	res, err := h.qb.CreateTimesheets(ctx, body.Entries)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Directory returns the cached reference data.
func (h *Handler) Directory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.references.Snapshot())
}

// RefreshDirectory reloads the reference data. Parts that fail keep
// their previous values and are listed under "errors".
func (h *Handler) RefreshDirectory(w http.ResponseWriter, r *http.Request) {
	ctx := credential.WithToken(r.Context(), bearerToken(r))
	dir, err := h.references.Refresh(ctx)
	if err == nil {
		writeJSON(w, http.StatusOK, dir)
		return
	}
	if dir.Empty() {
		writeError(w, err)
		return
	}
	failed := map[string]string{}
	var refreshErr *directory.RefreshError
	if errors.As(err, &refreshErr) {
		for part, e := range refreshErr.Errors {
			failed[part] = e.Error()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"directory": dir, "errors": failed})
}

// idString accepts a numeric or string id.
func idString(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		if id <= 0 {
			return ""
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}
