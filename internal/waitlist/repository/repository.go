// Package repository implements the waitlist data access layer on Postgres.
package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"eldercare-waitlist/internal/common/errors"
	"eldercare-waitlist/internal/models"
)

const (
	// DefaultListLimit applies when the caller passes a non-positive limit.
	DefaultListLimit = 100
	// DefaultSearchLimit applies to email substring search.
	DefaultSearchLimit = 20
	// MaxLimit caps every listing query to prevent unbounded scans.
	MaxLimit = 1000
)

var (
	ErrFieldNotAllowed = stderrors.New("FIELD_NOT_ALLOWED")
)

const entryColumns = `id, email, name, source, location, parent_location, care_needs, waitlist_number, created_at`

// updatableColumns is the admin-edit allow-list. id and created_at are
// immutable; everything else is consumer-controlled direct assignment.
var updatableColumns = map[string]bool{
	"email":           true,
	"name":            true,
	"source":          true,
	"location":        true,
	"parent_location": true,
	"care_needs":      true,
	"waitlist_number": true,
}

// Repository owns all SQL against the waitlist tables. It is constructed
// once at process start and passed by handle to the services; there is no
// package-level connection state.
type Repository struct {
	db      *sql.DB
	timeout time.Duration
}

func New(db *sql.DB, queryTimeout time.Duration) *Repository {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &Repository{db: db, timeout: queryTimeout}
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*models.WaitlistEntry, error) {
	var e models.WaitlistEntry
	err := row.Scan(
		&e.ID, &e.Email, &e.Name, &e.Source, &e.Location,
		&e.ParentLocation, &e.CareNeeds, &e.WaitlistNumber, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Upsert inserts a new waitlist entry or merges optional fields into the
// existing one for the same email. The whole operation is a single statement,
// so concurrent submitters of the same email race only inside Postgres, never
// in application code. Nil fields preserve existing values.
func (r *Repository) Upsert(ctx context.Context, email string, fields *models.UpsertFields) (*models.WaitlistEntry, error) {
	if fields == nil {
		fields = &models.UpsertFields{}
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO waitlist_submissions (email, source, name, location, parent_location, care_needs, waitlist_number)
		VALUES ($1, $2, $3, $4, $5, $6, nextval('waitlist_number_seq'))
		ON CONFLICT (email)
		DO UPDATE SET
			source = COALESCE($2, waitlist_submissions.source),
			name = COALESCE($3, waitlist_submissions.name),
			location = COALESCE($4, waitlist_submissions.location),
			parent_location = COALESCE($5, waitlist_submissions.parent_location),
			care_needs = COALESCE($6, waitlist_submissions.care_needs)
		RETURNING `+entryColumns,
		email, fields.Source, fields.Name, fields.Location, fields.ParentLocation, fields.CareNeeds,
	)

	entry, err := scanEntry(row)
	if err != nil {
		return nil, errors.Classify(err)
	}
	return entry, nil
}

// GetByEmail returns the entry with exactly this email, or nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM waitlist_submissions WHERE email = $1`, email)

	entry, err := scanEntry(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Classify(err)
	}
	return entry, nil
}

// GetByID returns the entry with this id, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.WaitlistEntry, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM waitlist_submissions WHERE id = $1`, id)

	entry, err := scanEntry(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Classify(err)
	}
	return entry, nil
}

// List returns entries newest-first. Non-positive limits fall back to
// DefaultListLimit, oversized ones are clamped to MaxLimit, negative offsets
// to zero.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*models.WaitlistEntry, error) {
	limit = clampLimit(limit, DefaultListLimit)
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM waitlist_submissions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, errors.Classify(err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// SearchByEmail returns entries whose email contains the substring,
// case-insensitively, newest-first.
func (r *Repository) SearchByEmail(ctx context.Context, substring string, limit int) ([]*models.WaitlistEntry, error) {
	limit = clampLimit(limit, DefaultSearchLimit)

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM waitlist_submissions
		WHERE email ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2`, "%"+substring+"%", limit)
	if err != nil {
		return nil, errors.Classify(err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// FilterByLocation returns entries with exactly this location, newest-first.
func (r *Repository) FilterByLocation(ctx context.Context, location string, limit int) ([]*models.WaitlistEntry, error) {
	return r.filterBy(ctx, "location", location, limit)
}

// FilterByParentLocation returns entries with exactly this parent location,
// newest-first.
func (r *Repository) FilterByParentLocation(ctx context.Context, parentLocation string, limit int) ([]*models.WaitlistEntry, error) {
	return r.filterBy(ctx, "parent_location", parentLocation, limit)
}

func (r *Repository) filterBy(ctx context.Context, column, value string, limit int) ([]*models.WaitlistEntry, error) {
	limit = clampLimit(limit, DefaultListLimit)

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	// column is one of two compile-time constants, never user input
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM waitlist_submissions
		WHERE `+column+` = $1
		ORDER BY created_at DESC
		LIMIT $2`, value, limit)
	if err != nil {
		return nil, errors.Classify(err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// Stats returns the total entry count and the count within the sliding
// 7-day window, computed in one query so both numbers come from the same
// snapshot.
func (r *Repository) Stats(ctx context.Context) (*models.WaitlistStats, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var stats models.WaitlistStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN created_at > NOW() - INTERVAL '7 days' THEN 1 END) AS last_week
		FROM waitlist_submissions`).Scan(&stats.Total, &stats.LastWeek)
	if err != nil {
		return nil, errors.Classify(err)
	}
	return &stats, nil
}

// Update replaces every column named in fields, explicit nulls included.
// Unlike Upsert it never merges. The SET clause is built from the allow-list
// with positional parameters only.
func (r *Repository) Update(ctx context.Context, id int64, fields models.UpdateFields) (*models.WaitlistEntry, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrFieldNotAllowed)
	}

	setParts := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+1)
	for _, column := range orderedColumns(fields) {
		if !updatableColumns[column] {
			return nil, fmt.Errorf("%w: %s", ErrFieldNotAllowed, column)
		}
		args = append(args, fields[column])
		setParts = append(setParts, column+" = $"+strconv.Itoa(len(args)))
	}
	args = append(args, id)

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		UPDATE waitlist_submissions
		SET `+strings.Join(setParts, ", ")+`
		WHERE id = $`+strconv.Itoa(len(args))+`
		RETURNING `+entryColumns, args...)

	entry, err := scanEntry(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: waitlist entry %d", errors.ErrNotFound, id)
		}
		return nil, errors.Classify(err)
	}
	return entry, nil
}

// Delete removes the entry and reconciles both referral tables in one
// transaction: rows it referred others from are deleted, rows where it was
// the invitee keep the history with referred_id nulled. The schema FKs
// enforce the same rules; doing it explicitly keeps deletes correct on
// databases restored without the constraints. Returns true iff a row was
// removed.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Classify(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM referrals WHERE referrer_id = $1`, id); err != nil {
		return false, errors.Classify(err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM referral_details WHERE referrer_id = $1`, id); err != nil {
		return false, errors.Classify(err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE referral_details SET referred_id = NULL WHERE referred_id = $1`, id); err != nil {
		return false, errors.Classify(err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM waitlist_submissions WHERE id = $1`, id)
	if err != nil {
		return false, errors.Classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Classify(err)
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Classify(err)
	}
	return affected > 0, nil
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// orderedColumns returns the field names sorted so the generated SQL is
// deterministic (map iteration is not).
func orderedColumns(fields models.UpdateFields) []string {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func collectEntries(rows *sql.Rows) ([]*models.WaitlistEntry, error) {
	entries := []*models.WaitlistEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Classify(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Classify(err)
	}
	return entries, nil
}
