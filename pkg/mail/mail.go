// Package mail builds and sends HTML email over SMTP (gomail).
//
//	err := mail.To("admin@pharmacare.local").
//	    Subject("Low stock: Amoxicillin").
//	    Body("<p>Only 4 units left.</p>").
//	    Send(ctx, sender)
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/pharmacare/pharmacare-api/config"
	"github.com/pharmacare/pharmacare-api/pkg/logger"
)

// SMTP holds connection credentials.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Insecure bool
}

// ConfigSMTP reads MAIL_* keys.
func ConfigSMTP() SMTP {
	return SMTP{
		Host:     config.MailHost(),
		Port:     config.MailPort(),
		Username: config.MailUsername(),
		Password: config.MailPassword(),
		From:     config.MailFrom(),
		FromName: config.Get("MAIL_FROM_NAME", "PharmaCare"),
		Insecure: config.Bool("MAIL_INSECURE_TLS", false),
	}
}

// Attachment is an in-memory file attached to a message.
type Attachment struct {
	Name    string
	Content []byte
}

// Message is a fluent builder for one email.
type Message struct {
	To          []string
	CC          []string
	SubjectLine string
	HTML        string
	Attachments []Attachment
}

// To starts a message for the given recipients.
func To(addresses ...string) *Message {
	return &Message{To: addresses}
}

func (m *Message) Cc(addresses ...string) *Message {
	m.CC = append(m.CC, addresses...)
	return m
}

func (m *Message) Subject(s string) *Message {
	m.SubjectLine = s
	return m
}

// Body sets the HTML body.
func (m *Message) Body(html string) *Message {
	m.HTML = html
	return m
}

// Template renders tmpl with data into the body.
func (m *Message) Template(tmpl *template.Template, data any) (*Message, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return m, fmt.Errorf("mail: render %s: %w", tmpl.Name(), err)
	}
	m.HTML = buf.String()
	return m, nil
}

func (m *Message) Attach(name string, content []byte) *Message {
	m.Attachments = append(m.Attachments, Attachment{Name: name, Content: content})
	return m
}

// Send delivers the message with s.
func (m *Message) Send(ctx context.Context, s Sender) error {
	return s.Send(ctx, m)
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, m *Message) error
}

// SMTPSender delivers through an SMTP relay.
type SMTPSender struct {
	cfg    SMTP
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg SMTP) *SMTPSender {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.Insecure {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &SMTPSender{cfg: cfg, dialer: d}
}

func (s *SMTPSender) Send(ctx context.Context, m *Message) error {
	if len(m.To) == 0 {
		return fmt.Errorf("mail: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(Build(s.cfg, m)); err != nil {
		return fmt.Errorf("mail: send %q: %w", m.SubjectLine, err)
	}
	return nil
}

// Build converts m to a gomail message using cfg's sender identity.
func Build(cfg SMTP, m *Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", cfg.From, cfg.FromName)
	gm.SetHeader("To", m.To...)
	if len(m.CC) > 0 {
		gm.SetHeader("Cc", m.CC...)
	}
	gm.SetHeader("Subject", m.SubjectLine)
	gm.SetBody("text/html", m.HTML)
	for _, a := range m.Attachments {
		content := a.Content
		gm.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
	}
	return gm
}

// LogSender only logs messages. Used when MAIL_DRIVER=log.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m *Message) error {
	logger.WithCtx(ctx).Info("mail: (log driver) message",
		"to", m.To, "subject", m.SubjectLine, "bytes", len(m.HTML))
	return nil
}

// NewSender picks the transport from MAIL_DRIVER (smtp | log).
func NewSender() Sender {
	if config.Get("MAIL_DRIVER", "smtp") == "log" {
		return LogSender{}
	}
	return NewSMTPSender(ConfigSMTP())
}
