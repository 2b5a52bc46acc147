package httpapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/nhle/work-schedule/internal/model"
)

// Client reads and writes the schedule collection of a running server.
// It satisfies sync.RemoteStore so command-line tools can work against a
// shared server instead of the database.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a Client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: c, logger: logger}
}

type errorBody struct {
	Error string `json:"error"`
}

// Load fetches every schedule.
func (c *Client) Load(ctx context.Context) ([]model.DailySchedule, error) {
	var days []model.DailySchedule
	var failure errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&days).
		SetError(&failure).
		Get("/api/schedules")
	if err != nil {
		return nil, fmt.Errorf("fetching schedules: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching schedules: %d %s", resp.StatusCode(), failure.Error)
	}
	if days == nil {
		days = []model.DailySchedule{}
	}
	return days, nil
}

// SaveAll replaces the server's collection.
func (c *Client) SaveAll(ctx context.Context, schedules []model.DailySchedule) error {
	if schedules == nil {
		schedules = []model.DailySchedule{}
	}
	var failure errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(schedules).
		SetError(&failure).
		Put("/api/schedules")
	if err != nil {
		return fmt.Errorf("saving schedules: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("saving schedules: %d %s", resp.StatusCode(), failure.Error)
	}
	c.logger.Debug("schedules saved to server", zap.Int("schedules", len(schedules)))
	return nil
}
