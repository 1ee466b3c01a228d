package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/roamsim/storefront-api/internal/model"
	apperrors "github.com/roamsim/storefront-api/pkg/errors"
	"github.com/roamsim/storefront-api/pkg/logger"
)

type Service interface {
	SendOrderConfirmation(ctx context.Context, to string, session *model.CheckoutSession) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

// NewService builds the SMTP mailer. With no host configured a no-op
// mailer is returned so checkout works in environments without SMTP.
func NewService(cfg Config, log *logger.Logger) Service {
	if cfg.Host == "" {
		log.Warn("SMTP not configured, confirmation emails disabled")
		return &noopService{logger: log}
	}
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: log,
	}
}

func (s *smtpService) SendOrderConfirmation(_ context.Context, to string, session *model.CheckoutSession) error {
	if session.Bundle == nil {
		return apperrors.Validation("session has no bundle")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Your eSIM for %s is ready", session.Bundle.Name))
	m.SetBody("text/html", fmt.Sprintf(
		"<p>Thanks for your purchase!</p>"+
			"<p>Your plan <strong>%s</strong> (%d days) is ready to activate. "+
			"Open your dashboard to install the eSIM.</p>"+
			"<p>Order reference: %s</p>",
		session.Bundle.Name, session.Bundle.DurationDays, session.OrderID,
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return apperrors.Network("send email", err)
	}
	return nil
}

type noopService struct {
	logger *logger.Logger
}

func (s *noopService) SendOrderConfirmation(_ context.Context, to string, session *model.CheckoutSession) error {
	s.logger.Debug("skipping confirmation email", "to", to, "session_id", session.ID)
	return nil
}
