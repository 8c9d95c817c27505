package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/exotic-fruits/auth-service/config"
	"github.com/exotic-fruits/auth-service/pkg/helpers"
	"github.com/exotic-fruits/auth-service/pkg/mailer/templates"
)

// Recipient identifies who gets a mail and which request triggered it.
type Recipient struct {
	Email string
	Name  string
	IP    string
}

// Sender is the outbound mail contract of the auth flows. A non-nil error
// means the message was not handed off.
type Sender interface {
	SendVerificationEmail(ctx context.Context, to Recipient, code string) error
	SendPasswordResetEmail(ctx context.Context, to Recipient, token string) error
}

// Publisher is satisfied by helpers.RabbitQueue.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// composer builds template jobs shared by every Sender.
type composer struct {
	cfg *config.Config
	now func() time.Time
}

func (c composer) verifyJob(to Recipient, code string) EmailJob {
	now := c.now()
	data := templates.NewVerifyEmailData(c.cfg, to.Name, to.Email, code,
		templates.WithIP(to.IP),
		templates.WithTime(now),
		templates.WithExpiresIn(now, helpers.VerificationCodeTTL),
	)
	return EmailJob{To: to.Email, Template: templates.VerifyEmail, Data: data}
}

func (c composer) resetJob(to Recipient, token string) EmailJob {
	now := c.now()
	data := templates.NewForgotPasswordData(c.cfg, to.Name, to.Email, token,
		templates.WithIP(to.IP),
		templates.WithTime(now),
		templates.WithExpiresIn(now, helpers.ResetTokenTTL),
	)
	return EmailJob{To: to.Email, Template: templates.ForgotPassword, Data: data}
}

// QueueSender publishes jobs for cmd/email_worker.
type QueueSender struct {
	composer
	pub Publisher
}

func NewQueueSender(cfg *config.Config, pub Publisher) *QueueSender {
	return &QueueSender{composer: composer{cfg: cfg, now: time.Now}, pub: pub}
}

func (s *QueueSender) SendVerificationEmail(ctx context.Context, to Recipient, code string) error {
	if err := s.pub.PublishJSON(ctx, s.verifyJob(to, code)); err != nil {
		return fmt.Errorf("publish verify_email: %w", err)
	}
	return nil
}

func (s *QueueSender) SendPasswordResetEmail(ctx context.Context, to Recipient, token string) error {
	if err := s.pub.PublishJSON(ctx, s.resetJob(to, token)); err != nil {
		return fmt.Errorf("publish forgot_password: %w", err)
	}
	return nil
}

// DirectSender renders and delivers inline, without a queue.
type DirectSender struct {
	composer
	transport Transport
}

func NewDirectSender(cfg *config.Config, transport Transport) *DirectSender {
	return &DirectSender{composer: composer{cfg: cfg, now: time.Now}, transport: transport}
}

func (s *DirectSender) SendVerificationEmail(ctx context.Context, to Recipient, code string) error {
	return s.deliver(ctx, s.verifyJob(to, code))
}

func (s *DirectSender) SendPasswordResetEmail(ctx context.Context, to Recipient, token string) error {
	return s.deliver(ctx, s.resetJob(to, token))
}

func (s *DirectSender) deliver(ctx context.Context, job EmailJob) error {
	subject, text, html, err := templates.Render(job.Template, job.Data)
	if err != nil {
		return err
	}
	return s.transport.Send(ctx, job.To, subject, text, html)
}

// LogSender only logs. Codes and tokens go to debug level so local runs can
// finish the flows without a mail provider.
type LogSender struct {
	logger *logrus.Logger
}

func NewLogSender(logger *logrus.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendVerificationEmail(_ context.Context, to Recipient, code string) error {
	s.logger.WithFields(logrus.Fields{"to": to.Email, "template": templates.VerifyEmail}).Info("mail suppressed")
	s.logger.WithField("to", to.Email).Debugf("verification code: %s", code)
	return nil
}

func (s *LogSender) SendPasswordResetEmail(_ context.Context, to Recipient, token string) error {
	s.logger.WithFields(logrus.Fields{"to": to.Email, "template": templates.ForgotPassword}).Info("mail suppressed")
	s.logger.WithField("to", to.Email).Debugf("reset token: %s", token)
	return nil
}

var (
	_ Sender = (*QueueSender)(nil)
	_ Sender = (*DirectSender)(nil)
	_ Sender = (*LogSender)(nil)
)
