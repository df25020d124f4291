// internal/common/database/schema.go
package database

import (
	"context"
	"fmt"
)

// schemaStatements creates the three waitlist tables and the waitlist number
// sequence. waitlist_number comes from its own sequence so positions stay
// monotonic and are never reused, even after deletes.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS waitlist_submissions (
		id SERIAL PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		name VARCHAR(255),
		source VARCHAR(100),
		location VARCHAR(100),
		parent_location VARCHAR(100),
		care_needs VARCHAR(100),
		waitlist_number INT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE SEQUENCE IF NOT EXISTS waitlist_number_seq START 1`,
	`CREATE TABLE IF NOT EXISTS referrals (
		id SERIAL PRIMARY KEY,
		referrer_id INT NOT NULL REFERENCES waitlist_submissions(id) ON DELETE CASCADE,
		referred_email VARCHAR(255) NOT NULL,
		status VARCHAR(20) DEFAULT 'pending',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS referral_details (
		id SERIAL PRIMARY KEY,
		referrer_id INT NOT NULL REFERENCES waitlist_submissions(id) ON DELETE CASCADE,
		referred_email VARCHAR(255) NOT NULL,
		referred_id INT REFERENCES waitlist_submissions(id) ON DELETE SET NULL,
		status VARCHAR(20) DEFAULT 'pending',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_waitlist_submissions_created_at
		ON waitlist_submissions (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_referrals_referrer_id
		ON referrals (referrer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_referral_details_referrer_id
		ON referral_details (referrer_id)`,
}

// EnsureSchema creates any missing tables, sequences and indexes.
// All statements are idempotent, so it is safe to run at every startup.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema setup failed: %w", err)
		}
	}
	return nil
}
