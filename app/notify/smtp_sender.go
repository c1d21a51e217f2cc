package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

var _ Sender = (*SMTPSender)(nil)

// SMTPSender delivers digests over SMTP. STARTTLS is used on the
// submission port, implicit TLS on 465.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
}

func NewSMTPSender(host string, port int, username, password, from string, to []string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
	}
}

func (s *SMTPSender) Send(ctx context.Context, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return &DeliveryError{Err: fmt.Errorf("invalid sender address: %w", err)}
	}
	if err := msg.To(s.to...); err != nil {
		return &DeliveryError{Err: fmt.Errorf("invalid recipient address: %w", err)}
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.username),
		mail.WithPassword(s.password),
	}
	if s.port == 465 {
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return &DeliveryError{Err: fmt.Errorf("failed to create SMTP client: %w", err)}
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return classify(fmt.Errorf("failed to send mail: %w", err))
	}

	return nil
}
