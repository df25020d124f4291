package models

import "time"

// ReferralStatus tracks the invitee's progress.
type ReferralStatus string

const (
	ReferralStatusPending    ReferralStatus = "pending"
	ReferralStatusRegistered ReferralStatus = "registered"
	ReferralStatusConverted  ReferralStatus = "converted"
)

// IsValid reports whether rs is one of the known statuses.
func (rs ReferralStatus) IsValid() bool {
	switch rs {
	case ReferralStatusPending, ReferralStatusRegistered, ReferralStatusConverted:
		return true
	default:
		return false
	}
}

// Referral records that a waitlist entry invited an email address.
// The invitee does not have to be on the waitlist.
type Referral struct {
	ID            int64          `json:"id"`
	ReferrerID    int64          `json:"referrer_id"`
	ReferredEmail string         `json:"referred_email"`
	Status        ReferralStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ReferralDetail is the Referral superset that also resolves the invitee's
// own waitlist entry when one exists. ReferredName is populated only by the
// detailed listing join; it is not a column.
type ReferralDetail struct {
	ID            int64          `json:"id"`
	ReferrerID    int64          `json:"referrer_id"`
	ReferredEmail string         `json:"referred_email"`
	ReferredID    *int64         `json:"referred_id,omitempty"`
	Status        ReferralStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	ReferredName  *string        `json:"referred_name,omitempty"`
}

// ReferralPair is the result of a successful link: both projections written
// in one transaction.
type ReferralPair struct {
	Referral *Referral       `json:"referral"`
	Detail   *ReferralDetail `json:"detail"`
}
