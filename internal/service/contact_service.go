package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/council-portal-api/internal/models"
	appErrors "github.com/noah-isme/council-portal-api/pkg/errors"
	"github.com/noah-isme/council-portal-api/pkg/mailer"
	"github.com/noah-isme/council-portal-api/pkg/middleware/requestid"
)

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

// ContactService forwards contact form submissions to the council inbox.
type ContactService struct {
	sender    mailSender
	inbox     string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContactService constructs the service.
func NewContactService(sender mailSender, inbox string, validate *validator.Validate, logger *zap.Logger) *ContactService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactService{sender: sender, inbox: strings.TrimSpace(inbox), validator: validate, logger: logger}
}

// Submit validates the message and sends it. The returned id is the provider's
// message id, empty when only logged.
func (s *ContactService) Submit(ctx context.Context, msg models.ContactMessage) (string, error) {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Message = strings.TrimSpace(msg.Message)
	if err := s.validator.Struct(msg); err != nil {
		return "", appErrors.Validation(err, "")
	}

	if s.sender == nil {
		s.logger.Info("contact message received without a sender", zap.String("from", msg.Email), zap.String("subject", msg.Subject))
		return "", nil
	}

	var to []string
	if s.inbox != "" {
		to = []string{s.inbox}
	}
	id, err := s.sender.Send(ctx, mailer.Message{
		To:      to,
		Subject: "[Contact] " + msg.Subject,
		Text:    fmt.Sprintf("From: %s <%s>\n\n%s", msg.Name, msg.Email, msg.Message),
		HTML: fmt.Sprintf("<p><strong>From:</strong> %s &lt;%s&gt;</p><p>%s</p>",
			html.EscapeString(msg.Name), html.EscapeString(msg.Email),
			strings.ReplaceAll(html.EscapeString(msg.Message), "\n", "<br>")),
		ReplyTo: msg.Email,
	})
	if err != nil {
		s.logger.Error("contact message delivery failed", zap.String("from", msg.Email), zap.String("request_id", requestid.FromContext(ctx)), zap.Error(err))
		return "", appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "failed to deliver message")
	}
	return id, nil
}
