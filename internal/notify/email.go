// Package notify sends the waitlist confirmation email. Delivery is
// best-effort: a failed send is logged and never fails the signup.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"eldercare-waitlist/internal/common/logger"
)

// SESService is the slice of the SES API the notifier needs; it is an
// interface so tests can fake delivery.
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type EmailNotifier struct {
	ses       SESService
	fromEmail string
	logger    logger.Logger
}

func NewEmailNotifier(sesClient SESService, fromEmail string, log logger.Logger) *EmailNotifier {
	return &EmailNotifier{
		ses:       sesClient,
		fromEmail: fromEmail,
		logger:    log.WithFields(map[string]interface{}{"component": "email-notifier"}),
	}
}

// SendConfirmation emails the new signup their waitlist position.
func (n *EmailNotifier) SendConfirmation(ctx context.Context, to string, waitlistNumber *int64) error {
	subject := "You're on the waitlist"
	body := "Thanks for joining our elder-care concierge waitlist. We'll be in touch soon."
	if waitlistNumber != nil {
		subject = fmt.Sprintf("You're #%d on the waitlist", *waitlistNumber)
		body = fmt.Sprintf(
			"Thanks for joining our elder-care concierge waitlist. You are number %d in line. We'll be in touch soon.",
			*waitlistNumber,
		)
	}

	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.fromEmail),
	})
	if err != nil {
		n.logger.Warn("confirmation email send failed", map[string]interface{}{
			"to":    to,
			"error": err.Error(),
		})
		return err
	}

	n.logger.Info("confirmation email sent", map[string]interface{}{"to": to})
	return nil
}
