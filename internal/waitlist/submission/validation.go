package submission

import (
	"fmt"
	"strings"

	"eldercare-waitlist/internal/common/errors"
	"eldercare-waitlist/internal/common/validation"
	"eldercare-waitlist/internal/models"
)

// User-facing messages. The wording is part of the contract with the form
// frontends; do not rephrase casually.
const (
	MsgAdded            = "You've been added to our waitlist!"
	MsgEmailRequired    = "Email address is required."
	MsgEmailInvalid     = "Please provide a valid email address."
	MsgDatabaseError    = "Database connection error. Please try again later."
	MsgDuplicateEmail   = "This email is already registered. Please use a different email."
	MsgReferrerInvalid  = "Invalid referrer email."
	MsgReferralsInvalid = "Please provide valid email addresses for your referrals."
	MsgReferrerNotFound = "Referrer not found in waitlist."
)

// DetailedFormSource marks submissions from the long intake form, which
// requires the care-profile fields the quick form leaves out.
const DetailedFormSource = "detailed-form"

var maxEmailLength = 320

// payloadSchema validates the raw JSON shape before it is decoded into a
// typed SubmissionInput. Semantic rules (email format, per-form required
// fields) live in validate below.
var payloadSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"email":          {Type: "string", MaxLength: &maxEmailLength},
		"source":         {Type: "string"},
		"name":           {Type: "string"},
		"city":           {Type: "string"},
		"parentLocation": {Type: "string"},
		"careNeeds":      {Type: "string"},
		"referredBy":     {Type: "string"},
	},
	Required:             []string{"email"},
	AdditionalProperties: true,
}

// CheckPayload validates a raw submission payload against the schema.
func CheckPayload(raw map[string]interface{}) *errors.StandardError {
	violations, err := validation.ValidateInput(raw, payloadSchema)
	if err != nil {
		return errors.NewValidationError(MsgEmailInvalid, err.Error())
	}
	if len(violations) > 0 {
		details := make([]string, len(violations))
		for i, v := range violations {
			details[i] = v.Error()
		}
		return errors.NewValidationError(MsgEmailInvalid, strings.Join(details, "; "))
	}
	return nil
}

// validate applies the semantic rules on a decoded submission.
func validate(input *models.SubmissionInput) *errors.StandardError {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return errors.NewValidationError(MsgEmailRequired, "email is empty")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return errors.NewValidationError(MsgEmailInvalid, err.Error())
	}

	if referrer := strings.TrimSpace(input.ReferredBy); referrer != "" {
		if err := validation.ValidateEmail(referrer); err != nil {
			return errors.NewValidationError(MsgReferrerInvalid, err.Error())
		}
	}

	if input.Source == DetailedFormSource {
		for field, value := range map[string]string{
			"name":           input.Name,
			"city":           input.City,
			"parentLocation": input.ParentLocation,
			"careNeeds":      input.CareNeeds,
		} {
			if strings.TrimSpace(value) == "" {
				return errors.NewValidationError(
					fmt.Sprintf("Please provide your %s.", fieldLabel(field)),
					fmt.Sprintf("%s is required for %s", field, DetailedFormSource),
				)
			}
		}
	}
	return nil
}

func fieldLabel(field string) string {
	switch field {
	case "parentLocation":
		return "parent's location"
	case "careNeeds":
		return "care needs"
	default:
		return field
	}
}

// canonicalEmail normalizes an address for storage and lookups, so
// "Amma@Example.com" and "amma@example.com" land on the same waitlist row.
func canonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
