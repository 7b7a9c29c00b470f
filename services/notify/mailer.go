package notify

import (
	"gopkg.in/gomail.v2"
)

// Email is a rendered message ready for delivery.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a single email.
type Mailer interface {
	Send(e Email) error
}

// SMTPMailer delivers mail over SMTP.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

var _ Mailer = (*SMTPMailer)(nil)

func (m *SMTPMailer) Send(e Email) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", e.To)
	msg.SetHeader("Subject", e.Subject)
	msg.SetBody("text/html", e.Body)
	return m.dialer.DialAndSend(msg)
}
