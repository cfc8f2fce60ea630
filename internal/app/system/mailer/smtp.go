// internal/app/system/mailer/smtp.go
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"
)

// SMTP delivers mail through an authenticated SMTP relay (STARTTLS on 587).
type SMTP struct {
	addr string
	host string
	auth smtp.Auth
	from mail.Address

	// send is smtp.SendMail; replaced in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTP creates an SMTP sender.
func NewSMTP(host string, port int, user, pass, fromName, fromAddr string) *SMTP {
	return &SMTP{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		host: host,
		auth: smtp.PlainAuth("", user, pass, host),
		from: mail.Address{Name: fromName, Address: fromAddr},
		send: smtp.SendMail,
	}
}

// Send implements Sender. net/smtp has no context support, so the message
// is sent on a goroutine and ctx only bounds how long the caller waits.
func (s *SMTP) Send(ctx context.Context, msg Email) error {
	body, err := buildMessage(s.from, msg, time.Now())
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.send(s.addr, s.auth, s.from.Address, []string{msg.To}, body)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", s.addr, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildMessage renders a multipart/alternative message with text and HTML parts.
func buildMessage(from mail.Address, msg Email, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("From", from.String())
	hdr.Set("To", msg.To)
	hdr.Set("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	hdr.Set("Date", now.Format(time.RFC1123Z))
	hdr.Set("MIME-Version", "1.0")
	hdr.Set("Content-Type", "multipart/alternative; boundary="+mw.Boundary())

	var out bytes.Buffer
	for _, k := range []string{"From", "To", "Subject", "Date", "MIME-Version", "Content-Type"} {
		fmt.Fprintf(&out, "%s: %s\r\n", k, hdr.Get(k))
	}
	out.WriteString("\r\n")

	parts := []struct{ ctype, body string }{
		{"text/plain; charset=utf-8", msg.TextBody},
		{"text/html; charset=utf-8", msg.HTMLBody},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.ctype}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	out.Write(buf.Bytes())
	return out.Bytes(), nil
}
