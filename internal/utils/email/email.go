package email

import (
	"fmt"
	"html"
	"net/smtp"

	"github.com/Dan9191/credit-dashboard/internal/config"
	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/Dan9191/credit-dashboard/internal/utils"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// BuildDigest composes the digest message for an insight
func (s *Sender) BuildDigest(to []string, insight *models.Insight) (*email.Email, error) {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = to
	e.Subject = fmt.Sprintf("Credit Risk Digest %s", insight.CreatedAt.Format("2006-01-02"))

	header := fmt.Sprintf("Generated %s by %s (%s) over %d credit applications.\n",
		insight.CreatedAt.Format("2006-01-02 15:04"), insight.Provider, insight.Model, insight.TotalRecords)
	if insight.Fallback {
		header += "The language model was unavailable; this is the rule-based summary.\n"
	}
	e.Text = []byte(header + "\n" + insight.Content + "\n\nCredit Risk Dashboard")

	body, err := utils.RenderMarkdown(insight.Content)
	if err != nil {
		return nil, err
	}
	e.HTML = []byte("<p>" + html.EscapeString(header) + "</p>" + string(body))
	return e, nil
}

// SendDigest e-mails an insight to the recipients
func (s *Sender) SendDigest(to []string, insight *models.Insight) error {
	if len(to) == 0 {
		return fmt.Errorf("no digest recipients")
	}
	e, err := s.BuildDigest(to, insight)
	if err != nil {
		return err
	}

	// Send email
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send digest to %v: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %v: %s", to, e.Subject)
	return nil
}
