package email

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/sehatsathi/sehatsathi-api/internal/config"
)

type Attachment struct {
	Name string
	Data []byte
}

type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Service sends one message.
type Service interface {
	Send(ctx context.Context, msg Message) error
}

// Dialer is the part of gomail.Dialer the SMTP service uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	dialer Dialer
	from   string
}

func NewSMTPService(cfg config.EmailConfig) Service {
	return NewService(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From)
}

func NewService(dialer Dialer, from string) Service {
	return &smtpService{dialer: dialer, from: from}
}

func (s *smtpService) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(Compose(s.from, msg)); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// Compose builds the MIME message for msg.
func Compose(from string, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	for _, a := range msg.Attachments {
		data := a.Data
		m.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	return m
}
