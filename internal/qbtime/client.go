package qbtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nhle/work-schedule/internal/credential"
)

// BatchSize is the number of entries sent per create request.
const BatchSize = 50

var (
	// ErrNoCalendars means the account has no schedule calendar to post into.
	ErrNoCalendars = errors.New("no schedule calendars found in your QB Time account")

	// ErrNoEntries rejects a create call with nothing to create.
	ErrNoEntries = errors.New("no entries provided")
)

// APIError is a non-2xx response from the service. The status and body
// are propagated to callers unchanged.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, strings.TrimSpace(e.Body))
}

// AuthFailure reports whether the service rejected the credential.
func (e *APIError) AuthFailure() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec int
}

// Client talks to the QuickBooks Time (TSheets) REST API. Every call
// resolves its bearer token from the credential source, so one Client
// serves both server-side and per-request credentials. Calls are never
// retried.
type Client struct {
	http    *resty.Client
	creds   credential.Source
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New builds a Client.
func New(opts Options, creds credential.Source, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.RatePerSec)
	}

	return &Client{
		http:    httpClient,
		creds:   creds,
		limiter: limiter,
		logger:  logger,
	}
}

// do performs one request and decodes the standard envelope. Non-2xx
// statuses become *APIError.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) (*envelope, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Error("QB Time request failed",
			zap.String("op", op),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		c.logger.Warn("QB Time returned error status",
			zap.String("op", op),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
		)
		return nil, &APIError{Op: op, Status: resp.StatusCode(), Body: string(resp.Body())}
	}

	var env envelope
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return nil, fmt.Errorf("%s: decoding response: %w", op, err)
		}
	}

	c.logger.Debug("QB Time request",
		zap.String("op", op),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
	)
	return &env, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values) (*envelope, error) {
	return c.do(ctx, op, http.MethodGet, path, query, nil)
}

// CurrentUser returns the user owning the token, or nil if the service
// returned no user.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	env, err := c.get(ctx, "fetching current user", "/current_user", nil)
	if err != nil {
		return nil, err
	}
	users, err := decodeSection[User](env.Results, "users")
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// Groups lists every group.
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	env, err := c.get(ctx, "fetching groups", "/groups", nil)
	if err != nil {
		return nil, err
	}
	return decodeSection[Group](env.Results, "groups")
}

// UsersInGroup lists the active members of a group.
func (c *Client) UsersInGroup(ctx context.Context, groupID int64) ([]User, error) {
	q := url.Values{}
	q.Set("group_ids", fmt.Sprint(groupID))
	q.Set("active", "yes")

	env, err := c.get(ctx, "fetching users", "/users", q)
	if err != nil {
		return nil, err
	}
	return decodeSection[User](env.Results, "users")
}

// Jobcodes returns one page of active jobcodes. Pages are 1-based.
func (c *Client) Jobcodes(ctx context.Context, page int) ([]Jobcode, error) {
	q := url.Values{}
	q.Set("active", "yes")
	q.Set("page", fmt.Sprint(page))

	env, err := c.get(ctx, "fetching jobcodes", "/jobcodes", q)
	if err != nil {
		return nil, err
	}
	return decodeSection[Jobcode](env.Results, "jobcodes")
}

// CustomFields lists every custom field.
func (c *Client) CustomFields(ctx context.Context) ([]CustomField, error) {
	env, err := c.get(ctx, "fetching custom fields", "/customfields", nil)
	if err != nil {
		return nil, err
	}
	return decodeSection[CustomField](env.Results, "customfields")
}

// CustomFieldItems returns the first page of items of one field with the
// service's default filters.
func (c *Client) CustomFieldItems(ctx context.Context, fieldID string) ([]CustomFieldItem, error) {
	q := url.Values{}
	q.Set("customfield_id", fieldID)

	env, err := c.get(ctx, "fetching custom field items", "/customfielditems", q)
	if err != nil {
		return nil, err
	}
	return decodeSection[CustomFieldItem](env.Results, "customfielditems")
}

// AllCustomFieldItems pages through every item of one field, active or
// not, while the service reports more.
func (c *Client) AllCustomFieldItems(ctx context.Context, fieldID string) ([]CustomFieldItem, error) {
	var all []CustomFieldItem
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("customfield_id", fieldID)
		q.Set("limit", "200")
		q.Set("page", fmt.Sprint(page))
		q.Set("active", "both")

		env, err := c.get(ctx, "fetching custom field items", "/customfielditems", q)
		if err != nil {
			return nil, err
		}
		items, err := decodeSection[CustomFieldItem](env.Results, "customfielditems")
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if !env.More {
			break
		}
	}
	if all == nil {
		all = []CustomFieldItem{}
	}
	return all, nil
}

// ScheduleCalendars lists the account's schedule calendars.
func (c *Client) ScheduleCalendars(ctx context.Context) ([]ScheduleCalendar, error) {
	env, err := c.get(ctx, "fetching schedule calendars", "/schedule_calendars", nil)
	if err != nil {
		return nil, err
	}
	return decodeSection[ScheduleCalendar](env.Results, "schedule_calendars")
}
