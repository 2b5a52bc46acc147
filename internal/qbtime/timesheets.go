package qbtime

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// noneItemNames are the managed-list options treated as "no value".
var noneItemNames = map[string]bool{"(none)": true, "none": true, "n/a": true}

// TimesheetDefaults builds the custom field values every timesheet must
// carry: for each field that applies to timesheets, the active "none"
// item of a managed list, or the empty string.
func (c *Client) TimesheetDefaults(ctx context.Context) (map[string]string, error) {
	fields, err := c.CustomFields(ctx)
	if err != nil {
		return nil, err
	}

	defaults := map[string]string{}
	for _, field := range fields {
		if field.AppliesTo != "timesheet" {
			continue
		}
		fieldID := strconv.FormatInt(field.ID, 10)

		if field.Type != "managed-list" {
			defaults[fieldID] = ""
			continue
		}

		items, err := c.CustomFieldItems(ctx, fieldID)
		if err != nil {
			return nil, err
		}
		defaults[fieldID] = ""
		for _, item := range items {
			if !item.Active {
				continue
			}
			if noneItemNames[strings.ToLower(item.Name)] || strings.TrimSpace(item.Name) == "" {
				defaults[fieldID] = strconv.FormatInt(item.ID, 10)
				break
			}
		}
		if defaults[fieldID] == "" {
			c.logger.Warn("no none item for managed list, using empty value",
				zap.String("field", field.Name),
				zap.String("field_id", fieldID),
			)
		}
	}
	return defaults, nil
}

// CreateTimesheets is the legacy path that records assignments as
// timesheets instead of schedule events. Required custom fields are
// filled with defaults; values supplied on an entry take precedence.
func (c *Client) CreateTimesheets(ctx context.Context, entries []TimesheetEntry) (*CreateResult, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no timesheet entries provided", ErrNoEntries)
	}

	defaults, err := c.TimesheetDefaults(ctx)
	if err != nil {
		return nil, err
	}

	enriched := make([]TimesheetEntry, len(entries))
	for i, e := range entries {
		fields := maps.Clone(defaults)
		maps.Copy(fields, e.CustomFields)
		e.CustomFields = fields
		enriched[i] = e
	}

	return createBatched(ctx, c, "creating timesheets", "/timesheets", "timesheets", enriched,
		func(st itemStatus) CreatedItem {
			return CreatedItem{ID: st.ID, UserID: st.UserID, Status: "ok"}
		})
}
