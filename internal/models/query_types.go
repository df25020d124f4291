package models

// QueryParams are the parsed parameters of an admin/query surface call.
// At most one of Email, Location, ParentLocation or Stats is honored per
// call; the surface enforces that order of precedence.
type QueryParams struct {
	Limit          int    `json:"limit"`
	Offset         int    `json:"offset"`
	Email          string `json:"email,omitempty"`
	Location       string `json:"location,omitempty"`
	ParentLocation string `json:"parentLocation,omitempty"`
	Stats          bool   `json:"stats,omitempty"`
}

// SubmissionInput is the raw form payload handed over by the form-handling
// layer. The form uses "city" for what storage calls location.
type SubmissionInput struct {
	Email          string `json:"email"`
	Source         string `json:"source,omitempty"`
	Name           string `json:"name,omitempty"`
	City           string `json:"city,omitempty"`
	ParentLocation string `json:"parentLocation,omitempty"`
	CareNeeds      string `json:"careNeeds,omitempty"`
	ReferredBy     string `json:"referredBy,omitempty"`
}

// SubmissionResult is the uniform user-facing outcome of a submission.
// Error carries diagnostic detail for logs, never raw driver text for users.
type SubmissionResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ReferralLink   string `json:"referralLink,omitempty"`
	SubmissionID   *int64 `json:"submissionId,omitempty"`
	WaitlistNumber *int64 `json:"waitlistNumber,omitempty"`
	Error          string `json:"error,omitempty"`
}

// BatchResult reports a referral batch: per-email failures are aggregated,
// not fatal.
type BatchResult struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	ReferralsCreated int    `json:"referralsCreated"`
}
