// Package submission implements the public signup flow on top of the
// repository and the referral linker.
package submission

import (
	"context"
	"fmt"
	"strings"

	"eldercare-waitlist/internal/common/config"
	"eldercare-waitlist/internal/common/errors"
	"eldercare-waitlist/internal/common/logger"
	"eldercare-waitlist/internal/common/metrics"
	"eldercare-waitlist/internal/common/validation"
	"eldercare-waitlist/internal/models"
	"eldercare-waitlist/internal/waitlist/referral"
	"eldercare-waitlist/internal/waitlist/repository"
)

// Notifier delivers the signup confirmation. Implementations must treat
// delivery as best-effort; the service never fails a submission over it.
type Notifier interface {
	SendConfirmation(ctx context.Context, to string, waitlistNumber *int64) error
}

// Service turns raw form submissions into waitlist entries and referral
// records. All outcomes, success or failure, come back as a SubmissionResult
// with a user-safe message; errors never leak driver text to the caller.
type Service struct {
	repo     *repository.Repository
	linker   *referral.Linker
	site     config.SiteConfig
	cfg      config.SubmissionConfig
	notifier Notifier
	logger   logger.Logger
}

func NewService(
	repo *repository.Repository,
	linker *referral.Linker,
	site config.SiteConfig,
	cfg config.SubmissionConfig,
	notifier Notifier,
	log logger.Logger,
) *Service {
	if cfg.DefaultSource == "" {
		cfg.DefaultSource = "main-form"
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 25
	}
	return &Service{
		repo:     repo,
		linker:   linker,
		site:     site,
		cfg:      cfg,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "submission-service"}),
	}
}

// Submit processes one signup: validate, upsert by email, optionally record
// the referral, and hand back the shareable referral link. Submitting an
// email that is already on the waitlist merges the new optional fields and
// still reports success.
func (s *Service) Submit(ctx context.Context, input *models.SubmissionInput) *models.SubmissionResult {
	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = s.cfg.DefaultSource
	}

	if verr := validate(input); verr != nil {
		metrics.SubmissionsTotal.WithLabelValues(source, "rejected").Inc()
		metrics.SubmissionFailures.WithLabelValues("validation").Inc()
		return &models.SubmissionResult{
			Success: false,
			Message: verr.Message,
			Error:   verr.Details,
		}
	}

	email := canonicalEmail(input.Email)

	// Pre-read only decides whether this signup is first-time (and so gets a
	// confirmation email). The upsert itself stays a single atomic statement;
	// a race here at worst sends or skips one email.
	existing, lookupErr := s.repo.GetByEmail(ctx, email)
	if lookupErr != nil {
		s.logger.Warn("pre-submit lookup failed", map[string]interface{}{
			"email": email,
			"error": lookupErr.Error(),
		})
	}
	firstTime := lookupErr == nil && existing == nil

	entry, err := s.repo.Upsert(ctx, email, upsertFields(input, source))
	if err != nil {
		return s.storageFailure(source, err)
	}

	if referrer := strings.TrimSpace(input.ReferredBy); referrer != "" {
		// Referral recording is subordinate to the signup: failures are
		// logged and the submission still succeeds.
		if _, linkErr := s.linker.Link(ctx, canonicalEmail(referrer), entry.Email); linkErr != nil {
			s.logger.Error("referral link failed", map[string]interface{}{
				"referrerEmail": referrer,
				"referredEmail": entry.Email,
				"error":         linkErr.Error(),
			})
		}
	}

	if firstTime && s.notifier != nil {
		if mailErr := s.notifier.SendConfirmation(ctx, entry.Email, entry.WaitlistNumber); mailErr != nil {
			s.logger.Warn("confirmation email failed", map[string]interface{}{
				"email": entry.Email,
				"error": mailErr.Error(),
			})
		}
	}

	metrics.SubmissionsTotal.WithLabelValues(source, "accepted").Inc()
	s.logger.Info("submission accepted", map[string]interface{}{
		"submissionId": entry.ID,
		"source":       source,
		"firstTime":    firstTime,
	})

	return &models.SubmissionResult{
		Success:        true,
		Message:        MsgAdded,
		ReferralLink:   s.site.ReferralLink(entry.Email),
		SubmissionID:   &entry.ID,
		WaitlistNumber: entry.WaitlistNumber,
	}
}

// SubmitReferrals records one referral per invited address, all attributed to
// referrerEmail. Validation is all-or-nothing; recording is per-email, with
// failures logged and the rest of the batch continuing.
func (s *Service) SubmitReferrals(ctx context.Context, referrerEmail string, referredEmails []string) *models.BatchResult {
	referrerEmail = canonicalEmail(referrerEmail)
	if err := validation.ValidateEmail(referrerEmail); err != nil {
		metrics.SubmissionFailures.WithLabelValues("validation").Inc()
		return &models.BatchResult{Success: false, Message: MsgReferrerInvalid}
	}

	if len(referredEmails) == 0 || len(referredEmails) > s.cfg.MaxBatchSize {
		metrics.SubmissionFailures.WithLabelValues("validation").Inc()
		return &models.BatchResult{Success: false, Message: MsgReferralsInvalid}
	}
	invited := make([]string, 0, len(referredEmails))
	for _, raw := range referredEmails {
		email := canonicalEmail(raw)
		if err := validation.ValidateEmail(email); err != nil {
			metrics.SubmissionFailures.WithLabelValues("validation").Inc()
			return &models.BatchResult{Success: false, Message: MsgReferralsInvalid}
		}
		invited = append(invited, email)
	}

	referrer, err := s.repo.GetByEmail(ctx, referrerEmail)
	if err != nil {
		metrics.SubmissionFailures.WithLabelValues("storage").Inc()
		return &models.BatchResult{Success: false, Message: MsgDatabaseError}
	}
	if referrer == nil {
		return &models.BatchResult{Success: false, Message: MsgReferrerNotFound}
	}

	created := 0
	for _, email := range invited {
		pair, linkErr := s.linker.Link(ctx, referrerEmail, email)
		if linkErr != nil {
			s.logger.Error("referral batch item failed", map[string]interface{}{
				"referrerEmail": referrerEmail,
				"referredEmail": email,
				"error":         linkErr.Error(),
			})
			continue
		}
		if pair != nil {
			created++
		}
	}

	s.logger.Info("referral batch processed", map[string]interface{}{
		"referrerEmail": referrerEmail,
		"requested":     len(invited),
		"created":       created,
	})

	return &models.BatchResult{
		Success:          true,
		Message:          fmt.Sprintf("Recorded %d of %d referrals.", created, len(invited)),
		ReferralsCreated: created,
	}
}

func (s *Service) storageFailure(source string, err error) *models.SubmissionResult {
	metrics.SubmissionsTotal.WithLabelValues(source, "rejected").Inc()

	message := MsgDatabaseError
	reason := "storage"
	if errors.IsConstraintViolation(err) && !errors.IsUniqueViolation(err) {
		// Unique conflicts are absorbed by the upsert; any other integrity
		// error means the payload itself is unacceptable.
		message = MsgDuplicateEmail
		reason = "constraint"
	}
	metrics.SubmissionFailures.WithLabelValues(reason).Inc()

	s.logger.Error("submission storage failure", map[string]interface{}{
		"source": source,
		"error":  err.Error(),
	})
	return &models.SubmissionResult{
		Success: false,
		Message: message,
		Error:   err.Error(),
	}
}

func upsertFields(input *models.SubmissionInput, source string) *models.UpsertFields {
	return &models.UpsertFields{
		Source:         &source,
		Name:           optional(input.Name),
		Location:       optional(input.City),
		ParentLocation: optional(input.ParentLocation),
		CareNeeds:      optional(input.CareNeeds),
	}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
