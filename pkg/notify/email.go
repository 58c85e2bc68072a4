package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const defaultEmailSubject = "Workflow notification"

var ErrMissingRecipients = errors.New("email sender needs a from address and at least one recipient")

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig configures the email sender.
type SESConfig struct {
	Region string
	From   string
	To     []string

	// AccessKey and SecretKey are optional; the default credential chain is used when empty
	AccessKey string
	SecretKey string
}

// EmailSender sends plain text email through Amazon SES v2.
type EmailSender struct {
	client sesAPI
	from   string
	to     []string
}

// NewEmailSender loads the AWS configuration and creates an SES client.
func NewEmailSender(ctx context.Context, cfg SESConfig) (*EmailSender, error) {
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, ErrMissingRecipients
	}

	options := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return newEmailSender(sesv2.NewFromConfig(awsConfig), cfg.From, cfg.To), nil
}

func newEmailSender(client sesAPI, from string, to []string) *EmailSender {
	return &EmailSender{client: client, from: from, to: to}
}

// Send emails the message; the title is the subject.
func (s *EmailSender) Send(ctx context.Context, title, message string) error {
	subject := title
	if subject == "" {
		subject = defaultEmailSubject
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: s.to,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(message)},
				},
			},
		},
	}

	output, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses: %w", err)
	}

	if output == nil {
		return errors.New("ses: empty response")
	}

	return nil
}
