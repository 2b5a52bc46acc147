package directory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nhle/work-schedule/internal/credential"
	"github.com/nhle/work-schedule/internal/model"
	"github.com/nhle/work-schedule/internal/qbtime"
)

// jobPageSize is the service's default page size; a shorter page is the
// last one.
const jobPageSize = 50

// GroupNotFoundError is returned when no group matches the configured
// label. Available lists every group name so the label can be corrected.
type GroupNotFoundError struct {
	Group     string
	Available []string
}

func (e *GroupNotFoundError) Error() string {
	return fmt.Sprintf("Group %q not found", e.Group)
}

// ConnectedUser identifies the owner of a validated token.
type ConnectedUser struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Company string `json:"company"`
}

// Syncer pulls reference data (project managers, technicians, jobs and
// custom fields) from the time-tracking service.
type Syncer struct {
	client    *qbtime.Client
	pmGroup   string
	techGroup string
	logger    *zap.Logger
}

// NewSyncer builds a Syncer. Group labels are matched case-insensitively.
func NewSyncer(client *qbtime.Client, pmGroup, techGroup string, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(pmGroup) == "" {
		pmGroup = model.DefaultPMGroup
	}
	if strings.TrimSpace(techGroup) == "" {
		techGroup = model.DefaultTechGroup
	}
	return &Syncer{
		client:    client,
		pmGroup:   strings.ToUpper(strings.TrimSpace(pmGroup)),
		techGroup: strings.ToUpper(strings.TrimSpace(techGroup)),
		logger:    logger,
	}
}

// groupMembers resolves label to a group and lists its active users.
func (s *Syncer) groupMembers(ctx context.Context, label string) ([]qbtime.User, error) {
	groups, err := s.client.Groups(ctx)
	if err != nil {
		return nil, err
	}

	groupID := int64(-1)
	available := make([]string, 0, len(groups))
	for _, g := range groups {
		available = append(available, g.Name)
		if groupID < 0 && strings.ToUpper(g.Name) == label {
			groupID = g.ID
		}
	}
	if groupID < 0 {
		return nil, &GroupNotFoundError{Group: label, Available: available}
	}

	users, err := s.client.UsersInGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("group members fetched",
		zap.String("group", label),
		zap.Int64("group_id", groupID),
		zap.Int("users", len(users)),
	)
	return users, nil
}

func displayName(u qbtime.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// FetchProjectManagers lists the members of the project manager group.
// Names are upper-cased.
func (s *Syncer) FetchProjectManagers(ctx context.Context) ([]model.ProjectManagerRef, error) {
	users, err := s.groupMembers(ctx, s.pmGroup)
	if err != nil {
		return nil, err
	}
	pms := make([]model.ProjectManagerRef, 0, len(users))
	for _, u := range users {
		pms = append(pms, model.ProjectManagerRef{
			ID:        strconv.FormatInt(u.ID, 10),
			Name:      strings.ToUpper(displayName(u)),
			FirstName: u.FirstName,
			LastName:  u.LastName,
		})
	}
	return pms, nil
}

// FetchTechnicians lists the members of the technician group.
func (s *Syncer) FetchTechnicians(ctx context.Context) ([]model.TechnicianRef, error) {
	users, err := s.groupMembers(ctx, s.techGroup)
	if err != nil {
		return nil, err
	}
	techs := make([]model.TechnicianRef, 0, len(users))
	for _, u := range users {
		techs = append(techs, model.TechnicianRef{
			ID:        strconv.FormatInt(u.ID, 10),
			Name:      displayName(u),
			FirstName: u.FirstName,
			LastName:  u.LastName,
		})
	}
	return techs, nil
}

// FetchJobs pages through active jobcodes until an empty or short page.
func (s *Syncer) FetchJobs(ctx context.Context) ([]model.JobRef, error) {
	jobs := []model.JobRef{}
	for page := 1; ; page++ {
		codes, err := s.client.Jobcodes(ctx, page)
		if err != nil {
			return nil, err
		}
		for _, j := range codes {
			ref := model.JobRef{
				ID:   strconv.FormatInt(j.ID, 10),
				Name: j.Name,
				Type: j.Type,
			}
			if j.ParentID != 0 {
				parent := strconv.FormatInt(j.ParentID, 10)
				ref.ParentID = &parent
			}
			jobs = append(jobs, ref)
		}
		if len(codes) < jobPageSize {
			break
		}
	}
	return jobs, nil
}

// FetchCustomFields lists custom fields with their active items.
func (s *Syncer) FetchCustomFields(ctx context.Context) ([]model.CustomField, error) {
	fields, err := s.client.CustomFields(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.CustomField, 0, len(fields))
	for _, f := range fields {
		id := strconv.FormatInt(f.ID, 10)
		items, err := s.client.CustomFieldItems(ctx, id)
		if err != nil {
			return nil, err
		}

		active := []model.CustomFieldItem{}
		for _, item := range items {
			if !item.Active {
				continue
			}
			active = append(active, model.CustomFieldItem{
				ID:     strconv.FormatInt(item.ID, 10),
				Name:   item.Name,
				Active: true,
			})
		}

		appliesTo := f.AppliesTo
		if appliesTo == "" {
			appliesTo = "both"
		}
		out = append(out, model.CustomField{
			ID:        id,
			Name:      f.Name,
			Required:  f.Required,
			Type:      f.UIPreference,
			AppliesTo: appliesTo,
			Items:     active,
		})
	}
	return out, nil
}

// FetchCustomFieldItems lists every item of one field, inactive included.
func (s *Syncer) FetchCustomFieldItems(ctx context.Context, fieldID string) ([]model.CustomFieldItem, error) {
	if strings.TrimSpace(fieldID) == "" {
		return nil, errors.New("customfield_id is required")
	}
	items, err := s.client.AllCustomFieldItems(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	out := make([]model.CustomFieldItem, 0, len(items))
	for _, item := range items {
		out = append(out, model.CustomFieldItem{
			ID:            strconv.FormatInt(item.ID, 10),
			CustomFieldID: strconv.FormatInt(item.CustomFieldID, 10),
			Name:          item.Name,
			ShortCode:     item.ShortCode,
			Active:        item.Active,
		})
	}
	return out, nil
}

// Connect validates token against the service and returns its owner.
// A nil user with no error means the service accepted the token but
// returned no user record.
func (s *Syncer) Connect(ctx context.Context, token string) (*ConnectedUser, error) {
	if strings.TrimSpace(token) == "" {
		return nil, credential.ErrNotConnected
	}
	user, err := s.client.CurrentUser(credential.WithToken(ctx, token))
	if err != nil {
		var apiErr *qbtime.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("authentication failed: %w", err)
		}
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return &ConnectedUser{
		ID:      user.ID,
		Name:    strings.TrimSpace(user.FirstName + " " + user.LastName),
		Company: user.CompanyName,
	}, nil
}
