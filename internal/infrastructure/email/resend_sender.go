package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/livebook-backend/internal/logger"
)

const defaultFrom = "onboarding@resend.dev"

// ResendSender отправляет письма через Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	log    *logrus.Entry
}

func NewResendSender(apiKey, from string) *ResendSender {
	if from == "" {
		from = defaultFrom
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
		log:    logger.Component("email"),
	}
}

func (s *ResendSender) Send(ctx context.Context, to, subject, html string) error {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("resend: не удалось отправить письмо: %w", err)
	}

	s.log.WithFields(logrus.Fields{"to": to, "id": sent.Id}).Debug("письмо отправлено")
	return nil
}

// LogSender пишет письма в лог. Используется, когда RESEND_API_KEY не задан.
type LogSender struct {
	log *logrus.Entry
}

func NewLogSender() *LogSender {
	return &LogSender{log: logger.Component("email")}
}

func (s *LogSender) Send(ctx context.Context, to, subject, html string) error {
	s.log.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("письмо не отправлено: RESEND_API_KEY не задан")
	return nil
}
