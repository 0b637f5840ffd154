package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"
)

// ErrNotConfigured is returned when no SMTP host is set
var ErrNotConfigured = errors.New("email delivery is not configured")

// Config holds SMTP configuration
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName     string
	FromEmail    string
	FrontendURL  string
	LabName      string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer renders and delivers the lab's transactional emails
type Mailer struct {
	config Config
	send   sendFunc
}

// NewMailer creates a mailer that delivers over SMTP
func NewMailer(config Config) *Mailer {
	if config.LabName == "" {
		config.LabName = "LabDesk"
	}
	return &Mailer{config: config, send: smtp.SendMail}
}

// Configured reports whether an SMTP host is set
func (m *Mailer) Configured() bool {
	return m.config.SMTPHost != ""
}

// SendPasswordReset sends the reset link for token
func (m *Mailer) SendPasswordReset(toEmail, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s&email=%s",
		m.config.FrontendURL,
		url.QueryEscape(token),
		url.QueryEscape(toEmail),
	)

	return m.deliver(toEmail, "Reset your password", passwordResetTemplate, map[string]interface{}{
		"Email":    toEmail,
		"ResetURL": resetURL,
	})
}

// SendResultsReady tells a patient their verified results can be viewed
func (m *Mailer) SendResultsReady(toEmail, patientName, orderNumber string) error {
	return m.deliver(toEmail, "Your test results are ready", resultsReadyTemplate, map[string]interface{}{
		"PatientName": patientName,
		"OrderNumber": orderNumber,
		"ResultsURL":  fmt.Sprintf("%s/orders/%s", m.config.FrontendURL, url.PathEscape(orderNumber)),
	})
}

// SendInvoiceIssued sends the invoice summary
func (m *Mailer) SendInvoiceIssued(toEmail, patientName, invoiceNumber, total, dueDate string) error {
	return m.deliver(toEmail, "Invoice "+invoiceNumber, invoiceIssuedTemplate, map[string]interface{}{
		"PatientName":   patientName,
		"InvoiceNumber": invoiceNumber,
		"Total":         total,
		"DueDate":       dueDate,
	})
}

func (m *Mailer) deliver(to, subject, tmpl string, data map[string]interface{}) error {
	if !m.Configured() {
		return ErrNotConfigured
	}

	data["LabName"] = m.config.LabName
	body, err := render(tmpl, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	message := m.buildHTMLEmail(to, subject+" - "+m.config.LabName, body)

	addr := fmt.Sprintf("%s:%d", m.config.SMTPHost, m.config.SMTPPort)
	var auth smtp.Auth
	if m.config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", m.config.SMTPUsername, m.config.SMTPPassword, m.config.SMTPHost)
	}

	if err := m.send(addr, auth, m.config.FromEmail, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (m *Mailer) buildHTMLEmail(to, subject, htmlBody string) []byte {
	headers := fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
			"\r\n",
		m.config.FromName,
		m.config.FromEmail,
		to,
		subject,
	)

	return []byte(headers + htmlBody)
}

func render(text string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(layoutTemplate)
	if err != nil {
		return "", err
	}
	if _, err := tmpl.New("content").Parse(text); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const layoutTemplate = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>{{.LabName}}</title></head>
<body style="margin: 0; padding: 0; font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f4f7fa;">
  <table role="presentation" style="max-width: 600px; margin: 40px auto; background-color: #ffffff; border-radius: 12px;">
    <tr>
      <td style="background-color: #0f766e; padding: 30px; text-align: center;">
        <h1 style="color: #ffffff; margin: 0; font-size: 26px;">{{.LabName}}</h1>
      </td>
    </tr>
    <tr>
      <td style="padding: 30px; color: #334155; font-size: 16px; line-height: 1.6;">{{template "content" .}}</td>
    </tr>
    <tr>
      <td style="background-color: #f8fafc; padding: 20px; text-align: center; color: #94a3b8; font-size: 12px;">
        This email was sent by {{.LabName}}
      </td>
    </tr>
  </table>
</body>
</html>
`

const passwordResetTemplate = `
<h2>Reset your password</h2>
<p>We received a request to reset the password for <strong>{{.Email}}</strong>. The link expires in 1 hour.</p>
<p><a href="{{.ResetURL}}" style="color: #0f766e;">Reset password</a></p>
<p style="color: #64748b; font-size: 14px;">If you did not ask for this you can ignore this email.</p>
`

const resultsReadyTemplate = `
<h2>Your results are ready</h2>
<p>Hello {{.PatientName}},</p>
<p>The results for order <strong>{{.OrderNumber}}</strong> have been verified by a doctor.</p>
<p><a href="{{.ResultsURL}}" style="color: #0f766e;">View results</a></p>
`

const invoiceIssuedTemplate = `
<h2>Invoice {{.InvoiceNumber}}</h2>
<p>Hello {{.PatientName}},</p>
<p>An invoice of <strong>{{.Total}}</strong> has been issued to you, due on {{.DueDate}}.</p>
`
