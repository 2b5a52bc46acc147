package httpapi

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/work-schedule/internal/credential"
	"github.com/nhle/work-schedule/internal/directory"
	"github.com/nhle/work-schedule/internal/export"
	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/qbtime"
	"github.com/nhle/work-schedule/internal/sync"
)

// DirectoryService fetches reference data and validates tokens.
type DirectoryService interface {
	FetchProjectManagers(ctx context.Context) ([]model.ProjectManagerRef, error)
	FetchTechnicians(ctx context.Context) ([]model.TechnicianRef, error)
	FetchJobs(ctx context.Context) ([]model.JobRef, error)
	FetchCustomFields(ctx context.Context) ([]model.CustomField, error)
	FetchCustomFieldItems(ctx context.Context, fieldID string) ([]model.CustomFieldItem, error)
	Connect(ctx context.Context, token string) (*directory.ConnectedUser, error)
}

// References is the cached directory snapshot.
type References interface {
	Snapshot() model.Directory
	Refresh(ctx context.Context) (model.Directory, error)
}

// QBTime is the subset of the service client the API proxies.
type QBTime interface {
	ListScheduleEvents(ctx context.Context, query qbtime.EventQuery) (*qbtime.EventList, error)
	ListTimesheets(ctx context.Context, query qbtime.TimesheetQuery) (*qbtime.TimesheetList, error)
	CreateScheduleEvents(ctx context.Context, entries []qbtime.ScheduleEventEntry) (*qbtime.CreateResult, error)
	CreateTimesheets(ctx context.Context, entries []qbtime.TimesheetEntry) (*qbtime.CreateResult, error)
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Store sync.RemoteStore
	// Cache mirrors saves made by the send endpoint. Optional.
	Cache sync.LocalCache
	// Credentials is the server-side token source.
	Credentials  credential.Source
	Directory    DirectoryService
	References   References
	QBTime       QBTime
	MaxBodyBytes int64
	Logger       *zap.Logger
	Now          func() time.Time
}

// Handler implements every endpoint.
type Handler struct {
	store      sync.RemoteStore
	cache      sync.LocalCache
	creds      credential.Source
	directory  DirectoryService
	references References
	qb         QBTime
	exporter   *export.Exporter
	maxBody    int64
	logger     *zap.Logger
	now        func() time.Time
}

// NewHandler builds a Handler from d.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBody := d.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	cache := d.Cache
	if cache == nil {
		cache = discardCache{}
	}
	return &Handler{
		store:      d.Store,
		cache:      cache,
		creds:      d.Credentials,
		directory:  d.Directory,
		references: d.References,
		qb:         d.QBTime,
		exporter:   export.NewExporter(d.QBTime, logger),
		maxBody:    maxBody,
		logger:     logger,
		now:        now,
	}
}

type discardCache struct{}

func (discardCache) Load(context.Context) []model.DailySchedule        { return nil }
func (discardCache) Save(context.Context, []model.DailySchedule) error { return nil }
