package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/mkrylov/tablebook/config"
)

// Message is one outbound email. Bcc addresses receive the message without
// appearing in the headers.
type Message struct {
	To      string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
}

// SMTPSender delivers mail over a single SMTP connection per message. The
// dial timeout bounds the whole delivery, which matters because the
// admission path sends the confirmation while holding the write lock.
type SMTPSender struct {
	host     string
	addr     string
	username string
	password string
	from     string
	timeout  time.Duration
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMTPSender{
		host:     cfg.Host,
		addr:     cfg.Addr(),
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		timeout:  timeout,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", msg.To, err)
	}

	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", s.addr, err)
	}
	_ = conn.SetDeadline(time.Now().Add(s.timeout))

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.username != "" {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	recipients := append([]string{msg.To}, append(msg.Cc, msg.Bcc...)...)
	for _, rcpt := range recipients {
		if rcpt == "" {
			continue
		}
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(s.render(msg))); err != nil {
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}
	return client.Quit()
}

func (s *SMTPSender) render(msg Message) string {
	headers := []string{
		"From: " + s.from,
		"To: " + msg.To,
	}
	if len(msg.Cc) > 0 {
		headers = append(headers, "Cc: "+strings.Join(msg.Cc, ", "))
	}
	headers = append(headers, "Subject: "+msg.Subject, "", msg.Body)
	return strings.Join(headers, "\r\n")
}
