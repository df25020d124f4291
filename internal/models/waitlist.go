package models

import "time"

// WaitlistEntry is a prospective customer's signup record, keyed by email.
// Optional columns are pointers so a missing value and an empty string stay
// distinguishable across the upsert merge.
type WaitlistEntry struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Name           *string   `json:"name,omitempty"`
	Source         *string   `json:"source,omitempty"`
	Location       *string   `json:"location,omitempty"`
	ParentLocation *string   `json:"parent_location,omitempty"`
	CareNeeds      *string   `json:"care_needs,omitempty"`
	WaitlistNumber *int64    `json:"waitlist_number,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// UpsertFields carries the optional attributes of a submission. Nil fields
// never overwrite existing values.
type UpsertFields struct {
	Name           *string
	Source         *string
	Location       *string
	ParentLocation *string
	CareNeeds      *string
}

// UpdateFields is the admin-edit payload: every key present replaces the
// column outright, including explicit nulls. Keys are validated against the
// repository's allow-list.
type UpdateFields map[string]interface{}

// WaitlistStats is the aggregate view shown on the admin dashboard.
type WaitlistStats struct {
	Total    int64 `json:"total"`
	LastWeek int64 `json:"lastWeek"`
}
