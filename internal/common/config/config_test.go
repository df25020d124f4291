// internal/common/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSiteConfig_ReferralLink(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		email   string
		want    string
	}{
		{
			name:    "https base",
			baseURL: "https://times-nri.vercel.app",
			email:   "amma@example.com",
			want:    "https://times-nri.vercel.app?ref=amma%40example.com",
		},
		{
			name:    "bare host gets https prefix",
			baseURL: "times-nri.vercel.app",
			email:   "amma@example.com",
			want:    "https://times-nri.vercel.app?ref=amma%40example.com",
		},
		{
			name:    "http preserved",
			baseURL: "http://localhost:3000",
			email:   "amma@example.com",
			want:    "http://localhost:3000?ref=amma%40example.com",
		},
		{
			name:    "plus sign escaped",
			baseURL: "https://times-nri.vercel.app",
			email:   "amma+tag@example.com",
			want:    "https://times-nri.vercel.app?ref=amma%2Btag%40example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SiteConfig{BaseURL: tt.baseURL}
			assert.Equal(t, tt.want, s.ReferralLink(tt.email))
		})
	}
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "eldercare_waitlist",
		User:     "waitlist",
		Password: "secret",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=waitlist password=secret dbname=eldercare_waitlist sslmode=disable",
		cfg.GetDSN(),
	)
}
