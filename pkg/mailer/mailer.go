// Package mailer sends plain-text email over SMTP via gomail.
package mailer

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

type Config struct {
	Host     string `split_words:"true" default:"smtp.gmail.com"`
	Port     int    `split_words:"true" default:"587"`
	Username string `split_words:"true"`
	Password string `split_words:"true"`
	From     string `split_words:"true"`
	// Inbox that receives a copy of every outgoing message.
	CC string `envconfig:"CC" split_words:"true"`
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	cc     string
}

func New(cfg Config) *SMTPMailer {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
		cc:     cfg.CC,
	}
}

// Enabled reports whether SMTP credentials were configured.
func (m *SMTPMailer) Enabled() bool {
	return m != nil && m.dialer != nil && m.from != ""
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if !m.Enabled() {
		return fmt.Errorf("smtp mailer not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	if m.cc != "" {
		msg.SetHeader("Cc", m.cc)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
