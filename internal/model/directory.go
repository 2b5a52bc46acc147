package model

import "time"

// ProjectManagerRef is a project manager as listed by the external
// directory. Name is upper-cased to match the group convention.
type ProjectManagerRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// TechnicianRef is a technician as listed by the external directory.
type TechnicianRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// JobRef is an active job code.
type JobRef struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
	Type     string  `json:"type"`
}

// CustomFieldItem is a selectable value of a managed-list custom field.
type CustomFieldItem struct {
	ID            string `json:"id"`
	CustomFieldID string `json:"customfield_id,omitempty"`
	Name          string `json:"name"`
	ShortCode     string `json:"short_code,omitempty"`
	Active        bool   `json:"active"`
}

// CustomField is a custom field definition with its active items.
type CustomField struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Required  bool              `json:"required"`
	Type      string            `json:"type"`
	AppliesTo string            `json:"appliesToJobcodes"`
	Items     []CustomFieldItem `json:"items"`
}

// Directory is an in-memory snapshot of the external reference data used
// for name-to-ID resolution. It is never persisted.
type Directory struct {
	ProjectManagers []ProjectManagerRef `json:"projectManagers"`
	Technicians     []TechnicianRef     `json:"technicians"`
	Jobs            []JobRef            `json:"jobs"`
	CustomFields    []CustomField       `json:"customFields"`
	FetchedAt       time.Time           `json:"fetchedAt"`
}

// Empty reports whether nothing has been fetched yet.
func (d Directory) Empty() bool {
	return len(d.ProjectManagers) == 0 && len(d.Technicians) == 0 && len(d.Jobs) == 0
}
