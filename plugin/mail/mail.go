// Package mail delivers the run report by SMTP.
package mail

import (
	"github.com/pkg/errors"
	gomail "gopkg.in/gomail.v2"
)

// Config holds SMTP delivery settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// sender abstracts gomail dialing, for tests.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends run reports.
type Mailer struct {
	config Config
	dialer sender
}

// New creates a Mailer.
func New(cfg Config) (*Mailer, error) {
	if cfg.Host == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, errors.New("mail requires host, sender and at least one recipient")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{
		config: cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

// SendReport delivers the HTML report with a plain-text alternative part.
func (m *Mailer) SendReport(subject, textBody, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", m.config.To...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)
	if htmlBody != "" {
		msg.AddAlternative("text/html", htmlBody)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return errors.Wrap(err, "failed to send report mail")
	}
	return nil
}
