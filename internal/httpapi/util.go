package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nhle/work-schedule/internal/credential"
	"github.com/nhle/work-schedule/internal/directory"
	"github.com/nhle/work-schedule/internal/export"
	"github.com/nhle/work-schedule/internal/qbtime"
	"github.com/nhle/work-schedule/internal/sync"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// writeError maps the error taxonomy onto a status and a JSON body.
func writeError(w http.ResponseWriter, err error) {
	var (
		groupErr  *directory.GroupNotFoundError
		lookupErr *export.LookupError
		apiErr    *qbtime.APIError
	)
	switch {
	case errors.Is(err, credential.ErrNotConnected):
		writeMessage(w, http.StatusBadRequest, "API token is required")
	case errors.As(err, &groupErr):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":           groupErr.Error(),
			"availableGroups": groupErr.Available,
		})
	case errors.As(err, &lookupErr),
		errors.Is(err, export.ErrNoEntries),
		errors.Is(err, export.ErrNoDate),
		errors.Is(err, qbtime.ErrNoEntries),
		errors.Is(err, qbtime.ErrNoCalendars):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sync.ErrDayNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sync.ErrAlreadySent):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "alreadySent": true})
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		writeMessage(w, status, err.Error())
	default:
		writeMessage(w, http.StatusInternalServerError, err.Error())
	}
}

// readBodyJSON decodes the body into out. A body over maxBytes fails
// with *http.MaxBytesError. An empty body leaves out untouched.
func readBodyJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// writeBodyError answers a failed readBodyJSON: 413 for an oversized
// body, 400 with prefix otherwise.
func writeBodyError(w http.ResponseWriter, prefix string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeMessage(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	writeMessage(w, http.StatusBadRequest, prefix+err.Error())
}

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requestToken picks the per-request credential: the body token first,
// then the Authorization header.
func requestToken(r *http.Request, bodyToken string) string {
	if t := strings.TrimSpace(bodyToken); t != "" {
		return t
	}
	return bearerToken(r)
}

func attachDisposition(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}
