package notify

import (
	"crypto/tls"

	gomail "gopkg.in/gomail.v2"
)

// SMTPTransport delivers messages through the mail server named in the
// rendered message. Each Send dials a fresh connection; notification
// volume is one message per certificate request, so pooling buys nothing.
type SMTPTransport struct{}

func NewSMTPTransport() *SMTPTransport {
	return &SMTPTransport{}
}

func (t *SMTPTransport) Send(message *Message) error {

	m := gomail.NewMessage()
	m.SetHeader("From", message.From)
	m.SetHeader("To", message.To)
	m.SetHeader("Subject", message.Subject)
	m.SetBody("text/plain", message.Body)

	dialer := gomail.NewDialer(message.Server, message.Port, "", "")
	if message.UseTLS {
		dialer.TLSConfig = &tls.Config{ServerName: message.Server}
	}

	return dialer.DialAndSend(m)
}
