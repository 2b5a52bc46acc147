package directory

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/nhle/work-schedule/internal/model"
)

// refreshTimeout bounds one Refresh triggered by the cron schedule.
const refreshTimeout = 60 * time.Second

// Fetcher is the subset of Syncer a Cache needs.
type Fetcher interface {
	FetchProjectManagers(ctx context.Context) ([]model.ProjectManagerRef, error)
	FetchTechnicians(ctx context.Context) ([]model.TechnicianRef, error)
	FetchJobs(ctx context.Context) ([]model.JobRef, error)
	FetchCustomFields(ctx context.Context) ([]model.CustomField, error)
}

// RefreshError collects the fetches that failed during one Refresh.
type RefreshError struct {
	Errors map[string]error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("directory refresh: %d of 4 fetches failed", len(e.Errors))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *RefreshError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, err := range e.Errors {
		errs = append(errs, err)
	}
	return errs
}

// Cache holds the last fetched directory snapshot. It is read by the
// export pipeline for name-to-id resolution.
type Cache struct {
	fetcher Fetcher
	logger  *zap.Logger

	mu       gosync.RWMutex
	snapshot model.Directory

	cron *cron.Cron
}

// NewCache builds an empty Cache over f.
func NewCache(f Fetcher, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{fetcher: f, logger: logger}
}

// Snapshot returns the current directory.
func (c *Cache) Snapshot() model.Directory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Refresh runs the four fetches concurrently and waits for all of them.
// Parts that fetched successfully replace their slice of the snapshot;
// failed parts keep the previous data and are reported in a
// *RefreshError.
func (c *Cache) Refresh(ctx context.Context) (model.Directory, error) {
	var (
		wg       gosync.WaitGroup
		errMu    gosync.Mutex
		failures = map[string]error{}

		pms    []model.ProjectManagerRef
		techs  []model.TechnicianRef
		jobs   []model.JobRef
		fields []model.CustomField
	)

	record := func(part string, err error) {
		errMu.Lock()
		defer errMu.Unlock()
		failures[part] = err
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		var err error
		if pms, err = c.fetcher.FetchProjectManagers(ctx); err != nil {
			record("projectManagers", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if techs, err = c.fetcher.FetchTechnicians(ctx); err != nil {
			record("technicians", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if jobs, err = c.fetcher.FetchJobs(ctx); err != nil {
			record("jobs", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if fields, err = c.fetcher.FetchCustomFields(ctx); err != nil {
			record("customFields", err)
		}
	}()
	wg.Wait()

	c.mu.Lock()
	if _, failed := failures["projectManagers"]; !failed {
		c.snapshot.ProjectManagers = pms
	}
	if _, failed := failures["technicians"]; !failed {
		c.snapshot.Technicians = techs
	}
	if _, failed := failures["jobs"]; !failed {
		c.snapshot.Jobs = jobs
	}
	if _, failed := failures["customFields"]; !failed {
		c.snapshot.CustomFields = fields
	}
	if len(failures) < 4 {
		c.snapshot.FetchedAt = time.Now()
	}
	snap := c.snapshot
	c.mu.Unlock()

	c.logger.Info("directory refreshed",
		zap.Int("project_managers", len(snap.ProjectManagers)),
		zap.Int("technicians", len(snap.Technicians)),
		zap.Int("jobs", len(snap.Jobs)),
		zap.Int("custom_fields", len(snap.CustomFields)),
		zap.Int("failed", len(failures)),
	)

	if len(failures) > 0 {
		return snap, &RefreshError{Errors: failures}
	}
	return snap, nil
}

// Start schedules periodic refreshes with a cron spec such as
// "@every 30m" or "0 6 * * 1-5". An empty spec does nothing.
func (c *Cache) Start(spec string) error {
	if spec == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return fmt.Errorf("directory refresh already started")
	}

	sched := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))
	_, err := sched.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if _, err := c.Refresh(ctx); err != nil {
			c.logger.Warn("scheduled directory refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("parsing refresh schedule %q: %w", spec, err)
	}

	sched.Start()
	c.cron = sched
	c.logger.Info("directory refresh scheduled", zap.String("spec", spec))
	return nil
}

// Stop halts the refresh schedule and waits for a running refresh.
func (c *Cache) Stop() {
	c.mu.Lock()
	sched := c.cron
	c.cron = nil
	c.mu.Unlock()

	if sched != nil {
		<-sched.Stop().Done()
	}
}
