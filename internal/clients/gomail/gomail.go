package gomail

import (
	"crypto/tls"
	"fmt"
	"regexp"

	"gopkg.in/gomail.v2"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/pkg/config"
)

var htmlTag = regexp.MustCompile("<[^>]+>")

type Client struct {
	cfg  config.MailerConfig
	send func(msg *gomail.Message) error
}

func New(cfg config.MailerConfig) *Client {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Login, cfg.Password)

	dialer.TLSConfig = &tls.Config{
		ServerName: cfg.Host,
		MinVersion: tls.VersionTLS12,
	}

	return &Client{
		cfg:  cfg,
		send: func(msg *gomail.Message) error { return dialer.DialAndSend(msg) },
	}
}

// NewWithSender delivers through s instead of dialing the SMTP server.
func NewWithSender(cfg config.MailerConfig, s gomail.Sender) *Client {
	return &Client{
		cfg:  cfg,
		send: func(msg *gomail.Message) error { return gomail.Send(s, msg) },
	}
}

func (c *Client) SendMessage(m entity.Message) error {
	if len(m.Recipients) == 0 {
		return fmt.Errorf("%w: no recipients", entity.ErrValidation)
	}

	msg := gomail.NewMessage(
		gomail.SetCharset("UTF-8"),
		gomail.SetEncoding(gomail.Base64),
	)

	subject := m.Subject
	if subject == "" {
		subject = c.cfg.Subject
	}

	msg.SetAddressHeader("From", c.cfg.From, c.cfg.FromName)
	msg.SetHeader("To", m.Recipients...)
	msg.SetHeader("Subject", subject)

	switch m.ContentType {
	case "text/html", "text/plain":
		msg.SetBody(m.ContentType, m.Message)
	default:
		if htmlTag.MatchString(m.Message) {
			msg.SetBody("text/html", m.Message)
		} else {
			msg.SetBody("text/plain", m.Message)
		}
	}

	err := c.send(msg)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
