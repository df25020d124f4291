// internal/notify/email_test.go
package notify

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eldercare-waitlist/internal/common/logger"
)

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{}, nil
}

func TestEmailNotifier_SendConfirmation_WithWaitlistNumber(t *testing.T) {
	sesClient := &fakeSES{}
	notifier := NewEmailNotifier(sesClient, "hello@example.com", logger.NewTestLogger(t))

	number := int64(42)
	err := notifier.SendConfirmation(context.Background(), "amma@example.com", &number)

	assert.NoError(t, err)
	require.Len(t, sesClient.inputs, 1)

	input := sesClient.inputs[0]
	assert.Equal(t, "hello@example.com", *input.Source)
	assert.Equal(t, []string{"amma@example.com"}, input.Destination.ToAddresses)
	assert.Contains(t, *input.Message.Subject.Data, "#42")
	assert.Contains(t, *input.Message.Body.Text.Data, "number 42")
}

func TestEmailNotifier_SendConfirmation_WithoutWaitlistNumber(t *testing.T) {
	sesClient := &fakeSES{}
	notifier := NewEmailNotifier(sesClient, "hello@example.com", logger.NewTestLogger(t))

	err := notifier.SendConfirmation(context.Background(), "amma@example.com", nil)

	assert.NoError(t, err)
	require.Len(t, sesClient.inputs, 1)
	assert.NotContains(t, *sesClient.inputs[0].Message.Subject.Data, "#")
}

func TestEmailNotifier_SendConfirmation_ReturnsSendError(t *testing.T) {
	sesClient := &fakeSES{err: assert.AnError}
	notifier := NewEmailNotifier(sesClient, "hello@example.com", logger.NewTestLogger(t))

	err := notifier.SendConfirmation(context.Background(), "amma@example.com", nil)

	assert.ErrorIs(t, err, assert.AnError)
}
