// Package referral orchestrates the dual-table referral writes.
package referral

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"eldercare-waitlist/internal/common/errors"
	"eldercare-waitlist/internal/common/logger"
	"eldercare-waitlist/internal/common/metrics"
	"eldercare-waitlist/internal/models"
	"eldercare-waitlist/internal/waitlist/repository"
)

var (
	ErrInvalidStatus = stderrors.New("INVALID_STATUS")
)

const referralColumns = `id, referrer_id, referred_email, status, created_at`
const detailColumns = `id, referrer_id, referred_email, referred_id, status, created_at`

// Linker writes the Referral + ReferralDetail pair for accepted referrals.
// Both rows go through one transaction so the two views cannot diverge.
type Linker struct {
	db      *sql.DB
	repo    *repository.Repository
	timeout time.Duration
	logger  logger.Logger
}

func New(db *sql.DB, repo *repository.Repository, queryTimeout time.Duration, log logger.Logger) *Linker {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &Linker{
		db:      db,
		repo:    repo,
		timeout: queryTimeout,
		logger:  log.WithFields(map[string]interface{}{"component": "referral-linker"}),
	}
}

// Link records that referrerEmail invited referredEmail. An unknown referrer
// is a silent no-op: a submission never fails because it named someone who is
// not on the waitlist. When the invitee already has an entry, the detail row
// resolves it; the invitee's entry is looked up inside the same transaction
// as the writes.
func (l *Linker) Link(ctx context.Context, referrerEmail, referredEmail string) (*models.ReferralPair, error) {
	referrer, err := l.repo.GetByEmail(ctx, referrerEmail)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving referrer: %v", errors.ErrReferralLinkFailed, err)
	}
	if referrer == nil {
		l.logger.Debug("referrer not on waitlist, skipping referral", map[string]interface{}{
			"referrerEmail": referrerEmail,
		})
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", errors.ErrReferralLinkFailed, err)
	}
	defer tx.Rollback()

	var referredID *int64
	var resolved int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM waitlist_submissions WHERE email = $1`, referredEmail).Scan(&resolved)
	switch {
	case err == nil:
		referredID = &resolved
	case stderrors.Is(err, sql.ErrNoRows):
		// invitee not signed up yet, detail row keeps referred_id null
	default:
		return nil, fmt.Errorf("%w: resolving invitee: %v", errors.ErrReferralLinkFailed, err)
	}

	var ref models.Referral
	err = tx.QueryRowContext(ctx, `
		INSERT INTO referrals (referrer_id, referred_email)
		VALUES ($1, $2)
		RETURNING `+referralColumns,
		referrer.ID, referredEmail,
	).Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredEmail, &ref.Status, &ref.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: referral insert: %v", errors.ErrReferralLinkFailed, err)
	}

	var detail models.ReferralDetail
	err = tx.QueryRowContext(ctx, `
		INSERT INTO referral_details (referrer_id, referred_email, referred_id)
		VALUES ($1, $2, $3)
		RETURNING `+detailColumns,
		referrer.ID, referredEmail, referredID,
	).Scan(&detail.ID, &detail.ReferrerID, &detail.ReferredEmail, &detail.ReferredID, &detail.Status, &detail.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: referral detail insert: %v", errors.ErrReferralLinkFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", errors.ErrReferralLinkFailed, err)
	}

	metrics.ReferralsLinked.Inc()
	l.logger.Info("referral recorded", map[string]interface{}{
		"referrerId":    referrer.ID,
		"referredEmail": referredEmail,
		"referredId":    referredID,
	})

	return &models.ReferralPair{Referral: &ref, Detail: &detail}, nil
}

// ListByReferrer returns the simple referral rows, newest-first.
func (l *Linker) ListByReferrer(ctx context.Context, referrerID int64) ([]*models.Referral, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	rows, err := l.db.QueryContext(ctx, `
		SELECT `+referralColumns+`
		FROM referrals
		WHERE referrer_id = $1
		ORDER BY created_at DESC`, referrerID)
	if err != nil {
		return nil, errors.Classify(err)
	}
	defer rows.Close()

	referrals := []*models.Referral{}
	for rows.Next() {
		var ref models.Referral
		if err := rows.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredEmail, &ref.Status, &ref.CreatedAt); err != nil {
			return nil, errors.Classify(err)
		}
		referrals = append(referrals, &ref)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Classify(err)
	}
	return referrals, nil
}

// ListDetailedByReferrer returns detail rows joined with the invitee's name
// for display, newest-first. Selecting the detailed view never creates or
// hides data relative to the simple one.
func (l *Linker) ListDetailedByReferrer(ctx context.Context, referrerID int64) ([]*models.ReferralDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	rows, err := l.db.QueryContext(ctx, `
		SELECT rd.id, rd.referrer_id, rd.referred_email, rd.referred_id, rd.status, rd.created_at, ws.name AS referred_name
		FROM referral_details rd
		LEFT JOIN waitlist_submissions ws ON rd.referred_id = ws.id
		WHERE rd.referrer_id = $1
		ORDER BY rd.created_at DESC`, referrerID)
	if err != nil {
		return nil, errors.Classify(err)
	}
	defer rows.Close()

	details := []*models.ReferralDetail{}
	for rows.Next() {
		var d models.ReferralDetail
		err := rows.Scan(&d.ID, &d.ReferrerID, &d.ReferredEmail, &d.ReferredID, &d.Status, &d.CreatedAt, &d.ReferredName)
		if err != nil {
			return nil, errors.Classify(err)
		}
		details = append(details, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Classify(err)
	}
	return details, nil
}

// UpdateStatus moves a referral through pending -> registered/converted.
// Transitions are triggered externally; nothing in this core advances them.
func (l *Linker) UpdateStatus(ctx context.Context, id int64, status models.ReferralStatus) (*models.Referral, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var ref models.Referral
	err := l.db.QueryRowContext(ctx, `
		UPDATE referrals
		SET status = $1
		WHERE id = $2
		RETURNING `+referralColumns,
		status, id,
	).Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredEmail, &ref.Status, &ref.CreatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: referral %d", errors.ErrNotFound, id)
		}
		return nil, errors.Classify(err)
	}
	return &ref, nil
}

// UpdateDetailStatus is the detail-table counterpart of UpdateStatus. It can
// also late-resolve referred_id once the invitee signs up.
func (l *Linker) UpdateDetailStatus(ctx context.Context, id int64, status models.ReferralStatus, referredID *int64) (*models.ReferralDetail, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var d models.ReferralDetail
	err := l.db.QueryRowContext(ctx, `
		UPDATE referral_details
		SET status = $1, referred_id = COALESCE($2, referred_id)
		WHERE id = $3
		RETURNING `+detailColumns,
		status, referredID, id,
	).Scan(&d.ID, &d.ReferrerID, &d.ReferredEmail, &d.ReferredID, &d.Status, &d.CreatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: referral detail %d", errors.ErrNotFound, id)
		}
		return nil, errors.Classify(err)
	}
	return &d, nil
}

// DeleteReferral removes a single simple referral row.
func (l *Linker) DeleteReferral(ctx context.Context, id int64) (bool, error) {
	return l.deleteFrom(ctx, "referrals", id)
}

// DeleteReferralDetail removes a single detail row.
func (l *Linker) DeleteReferralDetail(ctx context.Context, id int64) (bool, error) {
	return l.deleteFrom(ctx, "referral_details", id)
}

func (l *Linker) deleteFrom(ctx context.Context, table string, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	// table is one of two compile-time constants, never user input
	res, err := l.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return false, errors.Classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Classify(err)
	}
	return affected > 0, nil
}
