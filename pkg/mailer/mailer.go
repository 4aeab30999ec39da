package mailer

import (
	"context"
	"fmt"
	"net/url"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Message is one outbound e-mail.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

// ResendSender delivers messages through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	logger *zap.Logger
}

// NewResendSender creates a sender using apiKey and a default from address.
func NewResendSender(apiKey, from string, logger *zap.Logger) *ResendSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResendSender{client: resend.NewClient(apiKey), from: from, logger: logger}
}

// WithBaseURL points the client at another API host.
func (s *ResendSender) WithBaseURL(raw string) (*ResendSender, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse resend base url: %w", err)
	}
	s.client.BaseURL = u
	return s, nil
}

// Send queues msg for delivery and returns the provider message id.
func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if msg.ReplyTo != "" {
		params.ReplyTo = msg.ReplyTo
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		s.logger.Error("resend send failed", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
		return "", fmt.Errorf("resend send failed: %w", err)
	}

	s.logger.Info("resend sent", zap.String("message_id", sent.Id), zap.Strings("to", msg.To))
	return sent.Id, nil
}

// LogSender records messages in the log instead of sending them. Used when no API key is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs msg and reports an empty message id.
func (s *LogSender) Send(_ context.Context, msg Message) (string, error) {
	s.logger.Info("mail delivery disabled, message logged",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("reply_to", msg.ReplyTo),
		zap.String("text", msg.Text),
	)
	return "", nil
}
