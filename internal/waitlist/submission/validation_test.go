// internal/waitlist/submission/validation_test.go
package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eldercare-waitlist/internal/models"
)

// ==========================
// Semantic Validation Tests
// ==========================

func TestValidate_EmailRules(t *testing.T) {
	tests := []struct {
		name        string
		email       string
		wantMessage string
	}{
		{"valid address", "amma@example.com", ""},
		{"missing email", "", MsgEmailRequired},
		{"whitespace only", "   ", MsgEmailRequired},
		{"no at sign", "ammaexample.com", MsgEmailInvalid},
		{"no domain dot", "a@b", MsgEmailInvalid},
		{"empty local part", "@example.com", MsgEmailInvalid},
		{"two at signs", "a@b@example.com", MsgEmailInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(&models.SubmissionInput{Email: tt.email})
			if tt.wantMessage == "" {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.wantMessage, err.Message)
		})
	}
}

func TestValidate_ReferrerEmailCheckedWhenPresent(t *testing.T) {
	err := validate(&models.SubmissionInput{
		Email:      "amma@example.com",
		ReferredBy: "not-an-email",
	})

	require.NotNil(t, err)
	assert.Equal(t, MsgReferrerInvalid, err.Message)
}

func TestValidate_DetailedFormRequiresCareProfile(t *testing.T) {
	complete := &models.SubmissionInput{
		Email:          "amma@example.com",
		Source:         DetailedFormSource,
		Name:           "Asha",
		City:           "Chennai",
		ParentLocation: "Chennai",
		CareNeeds:      "daily check-ins",
	}
	assert.Nil(t, validate(complete))

	missing := *complete
	missing.CareNeeds = " "
	err := validate(&missing)
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "care needs")
}

func TestValidate_QuickFormSkipsCareProfile(t *testing.T) {
	err := validate(&models.SubmissionInput{
		Email:  "amma@example.com",
		Source: "main-form",
	})
	assert.Nil(t, err)
}

// ==========================
// Payload Schema Tests
// ==========================

func TestCheckPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
		wantErr bool
	}{
		{
			name:    "valid payload",
			payload: map[string]interface{}{"email": "amma@example.com", "source": "main-form"},
			wantErr: false,
		},
		{
			name:    "missing email",
			payload: map[string]interface{}{"source": "main-form"},
			wantErr: true,
		},
		{
			name:    "email wrong type",
			payload: map[string]interface{}{"email": 42},
			wantErr: true,
		},
		{
			name:    "unknown keys tolerated",
			payload: map[string]interface{}{"email": "amma@example.com", "utm_campaign": "spring"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPayload(tt.payload)
			if tt.wantErr {
				assert.NotNil(t, err)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestCanonicalEmail(t *testing.T) {
	assert.Equal(t, "amma@example.com", canonicalEmail("  Amma@Example.COM "))
}
