// Package httpapi serves the schedule store, the QB Time proxy endpoints
// and the report downloads over HTTP.
package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Router wraps http.ServeMux with request logging.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

// NewRouter creates an empty Router.
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{mux: http.NewServeMux(), logger: logger}
}

// Handle registers h for a method-qualified pattern such as
// "GET /api/schedules".
func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	r.mux.ServeHTTP(rec, req)
	r.logger.Debug("http request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// Register mounts every endpoint of h.
func (r *Router) Register(h *Handler) {
	r.Handle("GET /health", h.Health)

	r.Handle("GET /api/schedules", h.GetSchedules)
	r.Handle("PUT /api/schedules", h.PutSchedules)
	r.Handle("POST /api/schedules/{id}/send", h.SendSchedule)

	r.Handle("GET /api/qbtime/token", h.TokenStatus)
	r.Handle("POST /api/qbtime/connect", h.Connect)
	r.Handle("POST /api/qbtime/pms", h.ProjectManagers)
	r.Handle("POST /api/qbtime/techs", h.Technicians)
	r.Handle("POST /api/qbtime/jobs", h.Jobs)
	r.Handle("POST /api/qbtime/customfields", h.CustomFields)
	r.Handle("POST /api/qbtime/customfielditems", h.CustomFieldItems)
	r.Handle("POST /api/qbtime/schedule-events", h.ScheduleEvents)
	r.Handle("POST /api/qbtime/timesheets-list", h.TimesheetsList)
	r.Handle("POST /api/qbtime/create-schedule-events", h.CreateScheduleEvents)
	r.Handle("POST /api/qbtime/timesheets", h.CreateTimesheets)

	r.Handle("GET /api/directory", h.Directory)
	r.Handle("POST /api/directory/refresh", h.RefreshDirectory)

	r.Handle("GET /api/export/text", h.ExportText)
	r.Handle("GET /api/export/ics", h.ExportICS)
	r.Handle("GET /api/export/xlsx", h.ExportXLSX)
}

// NewServer builds the listener for the API.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
