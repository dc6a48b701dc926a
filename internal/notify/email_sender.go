package notify

import (
	"bytes"
	"time"

	"go.uber.org/zap"
	gomail "gopkg.in/mail.v2"
)

// EmailConfig holds SMTP configuration for sending emails.
type EmailConfig struct {
	SMTPServer string `yaml:"server"`
	SMTPPort   int    `yaml:"port"`
	SMTPUser   string `yaml:"user"`
	SMTPPass   string `yaml:"pass"`
	FromEmail  string `yaml:"from"`
	ToEmail    string `yaml:"to"`
}

func (c EmailConfig) Complete() bool {
	return c.SMTPServer != "" && c.SMTPPort > 0 && c.FromEmail != "" && c.ToEmail != ""
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender delivers messages via SMTP.
type EmailSender struct {
	cfg    EmailConfig
	dialer mailDialer
	logger *zap.Logger
}

func NewEmailSender(cfg EmailConfig, logger *zap.Logger) *EmailSender {
	d := gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	d.Timeout = 10 * time.Second
	return &EmailSender{cfg: cfg, dialer: d, logger: logger}
}

func (s *EmailSender) message(msg *RenderedMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", s.cfg.ToEmail)
	m.SetHeader("Subject", msg.Subject)

	if msg.HTML != "" && msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else if msg.HTML != "" {
		m.SetBody("text/html", msg.HTML)
	} else {
		m.SetBody("text/plain", msg.Text)
	}

	for _, a := range msg.Attachments {
		m.AttachReader(a.Name, bytes.NewReader(a.Data))
	}
	return m
}

// Send delivers an email with HTML body, plain text fallback and attachments.
func (s *EmailSender) Send(msg *RenderedMessage) error {
	if err := s.dialer.DialAndSend(s.message(msg)); err != nil {
		return err
	}

	s.logger.Info("email sent", zap.String("subject", msg.Subject), zap.String("to", s.cfg.ToEmail))
	return nil
}
