package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-results-api/pkg/config"
)

// Template names understood by the mailer.
const (
	TemplateSubmissionApproved = "submission-approved"
	TemplateSubmissionRejected = "submission-rejected"
)

// Message is a templated email to one recipient.
type Message struct {
	To       string
	Subject  string
	Template string
	Params   map[string]string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer renders HTML templates and delivers them over SMTP.
type SMTPMailer struct {
	addr        string
	host        string
	auth        smtp.Auth
	from        string
	frontendURL string
	templates   *template.Template
	send        sendFunc
}

var bodies = map[string]string{
	TemplateSubmissionApproved: `<h2>Dear {{.instructorName}},</h2>
<p>Your result submission for <strong>{{.courseName}}</strong> has been approved.</p>
{{if .notes}}<p><strong>Notes:</strong> {{.notes}}</p>{{end}}
<p>Please log in to the lecturer portal for more details.</p>
<p><a href="{{.frontendURL}}/lecturer">View Details</a></p>
<p>Best regards,<br>Examination Office</p>`,
	TemplateSubmissionRejected: `<h2>Dear {{.instructorName}},</h2>
<p>Your result submission for <strong>{{.courseName}}</strong> has been rejected.</p>
<p><strong>Reason:</strong> {{.reason}}</p>
{{if .notes}}<p><strong>Notes:</strong> {{.notes}}</p>{{end}}
<p>Please correct the score sheet and submit it again.</p>
<p><a href="{{.frontendURL}}/lecturer">View Details</a></p>
<p>Best regards,<br>Examination Office</p>`,
}

// NewSMTPMailer builds a mailer. It returns nil when no SMTP host is configured.
func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, nil
	}
	root := template.New("mail").Option("missingkey=zero")
	for name, body := range bodies {
		if _, err := root.New(name).Parse(body); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		host:        cfg.Host,
		auth:        auth,
		from:        cfg.From,
		frontendURL: cfg.FrontendURL,
		templates:   root,
		send:        smtp.SendMail,
	}, nil
}

// Render produces the HTML body for a message.
func (m *SMTPMailer) Render(msg Message) (string, error) {
	tmpl := m.templates.Lookup(msg.Template)
	if tmpl == nil {
		return "", fmt.Errorf("unknown email template %q", msg.Template)
	}
	data := map[string]string{"frontendURL": m.frontendURL}
	for k, v := range msg.Params {
		data[k] = v
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", msg.Template, err)
	}
	return buf.String(), nil
}

// Send renders and delivers a message. net/smtp has no context support, so
// cancellation is only honoured before the dial.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("email %q has no recipient", msg.Subject)
	}
	body, err := m.Render(msg)
	if err != nil {
		return err
	}
	var raw bytes.Buffer
	fmt.Fprintf(&raw, "From: %s\r\n", m.from)
	fmt.Fprintf(&raw, "To: %s\r\n", msg.To)
	fmt.Fprintf(&raw, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&raw, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	raw.WriteString("MIME-Version: 1.0\r\n")
	raw.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	raw.WriteString(body)

	if err := m.send(m.addr, m.auth, m.from, []string{msg.To}, raw.Bytes()); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}
