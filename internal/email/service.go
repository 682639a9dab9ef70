// Package email sends notification mail over SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/smtp"
	"strings"
	texttemplate "text/template"
	"time"
)

var ErrNotConfigured = errors.New("email not configured")

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service provides email sending
type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   SendFunc
}

// NewService creates a new email service
func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// WithSender swaps the transport, e.g. for tests.
func (s *Service) WithSender(send SendFunc) *Service {
	s.send = send
	return s
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

func (s *Service) fromHeader() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	return s.config.From
}

// SendHTMLEmail sends a multipart message with a plain text fallback.
func (s *Service) SendHTMLEmail(to []string, replyTo, subject, textBody, htmlBody string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}

	boundary := "boundary-blackbox-contact"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", s.fromHeader())
	if replyTo != "" {
		fmt.Fprintf(&msg, "Reply-To: %s\r\n", sanitizeHeader(replyTo))
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", sanitizeHeader(subject))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", textBody)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return s.send(s.server, s.auth, s.config.From, to, msg.Bytes())
}

// SubmissionData is what the notification template renders.
type SubmissionData struct {
	SiteName    string
	ID          int64
	Name        string
	Email       string
	Business    string
	Message     string
	SubmittedAt time.Time
}

// SendSubmissionNotification mails a new contact submission to the team.
// Replies go straight to the visitor.
func (s *Service) SendSubmissionNotification(to []string, data SubmissionData) error {
	subject := fmt.Sprintf("New contact form submission from %s", data.Name)
	html, err := renderTemplate(submissionTemplate, data)
	if err != nil {
		return fmt.Errorf("render submission template: %w", err)
	}
	text, err := renderTemplate(submissionTextTemplate, data)
	if err != nil {
		return fmt.Errorf("render submission text: %w", err)
	}
	return s.SendHTMLEmail(to, data.Email, subject, text, html)
}

// sanitizeHeader strips line breaks so user input cannot add headers.
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

type renderer interface {
	Execute(w io.Writer, data any) error
}

func renderTemplate(t renderer, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var submissionTemplate = template.Must(template.New("submission").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New contact form submission</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #00c2ff; padding-bottom: 10px; margin-bottom: 20px; }
        .label { font-weight: 600; color: #555; }
        .message { white-space: pre-wrap; background: #f6f8fa; padding: 12px; border-radius: 4px; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.SiteName}}</h1>
    </div>

    <h2>New contact form submission #{{.ID}}</h2>

    <p><span class="label">Name:</span> {{.Name}}</p>
    <p><span class="label">Email:</span> <a href="mailto:{{.Email}}">{{.Email}}</a></p>
    {{if .Business}}<p><span class="label">Business:</span> {{.Business}}</p>{{end}}

    <p class="label">Message:</p>
    <div class="message">{{.Message}}</div>

    <div class="footer">
        <p>Received {{.SubmittedAt.Format "Jan 2, 2006 at 3:04 PM MST"}}. Reply to this email to answer the visitor directly.</p>
    </div>
</body>
</html>`))

var submissionTextTemplate = texttemplate.Must(texttemplate.New("submission-text").Parse(`New contact form submission #{{.ID}}

Name: {{.Name}}
Email: {{.Email}}
{{if .Business}}Business: {{.Business}}
{{end}}
{{.Message}}
`))
