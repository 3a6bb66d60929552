// Package email sends the lead notification and confirmation mails. Delivery
// is best-effort by design: callers get a boolean back, never a failure that
// blocks lead capture.
package email

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"gopkg.in/gomail.v2"

	"skyline/api/internal/store"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// NotifyTo receives the internal new-lead notification.
	NotifyTo []string
}

type Service struct {
	cfg  Config
	send func(*gomail.Message) error
}

func NewService(cfg Config) *Service {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &Service{
		cfg:  cfg,
		send: func(m *gomail.Message) error { return dialer.DialAndSend(m) },
	}
}

func (s *Service) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.From != ""
}

// SendLeadNotification mails the internal follow-up team about a new lead.
func (s *Service) SendLeadNotification(lead store.Lead) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}
	if len(s.cfg.NotifyTo) == 0 {
		return fmt.Errorf("no notification recipients configured")
	}

	body, err := renderTemplate(notificationTemplate, notificationData{
		Lead: lead,
		Now:  time.Now().Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		return fmt.Errorf("render notification: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from())
	m.SetHeader("To", s.cfg.NotifyTo...)
	m.SetHeader("Subject", "New Contact Form Submission - Skyline Invest")
	m.SetBody("text/plain", body)
	return s.send(m)
}

// SendLeadConfirmation mails the submitter an acknowledgement.
func (s *Service) SendLeadConfirmation(lead store.Lead) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}
	if strings.TrimSpace(lead.Email) == "" {
		return fmt.Errorf("lead has no email address")
	}

	body, err := renderTemplate(confirmationTemplate, lead)
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from())
	m.SetHeader("To", lead.Email)
	m.SetHeader("Subject", "Thank you for your interest in Skyline Invest")
	m.SetBody("text/plain", body)
	return s.send(m)
}

func (s *Service) from() string {
	if s.cfg.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From)
	}
	return s.cfg.From
}

type notificationData struct {
	Lead store.Lead
	Now  string
}

func renderTemplate(tmpl string, data any) (string, error) {
	t := template.Must(template.New("email").Parse(tmpl))
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const notificationTemplate = `New Contact Form Submission - Skyline Invest

Date & Time: {{.Now}}

CONTACT INFORMATION:
=====================
Name: {{.Lead.FirstName}} {{.Lead.LastName}}
Email: {{.Lead.Email}}
WhatsApp: {{.Lead.Whatsapp}}
Country: {{.Lead.Country}}

INQUIRY DETAILS:
================
Preferred Contact: {{.Lead.ContactMethod}}
Buying Timeframe: {{.Lead.Timeframe}}
Property Interest: {{if .Lead.PropertyType}}{{.Lead.PropertyType}}{{else}}Not specified{{end}}

ADDITIONAL INFO:
================
Source: {{.Lead.Source}}
IP Address: {{.Lead.IPAddress}}
Detected Country: {{.Lead.DetectedCountry}}
User Agent: {{.Lead.UserAgent}}

Please follow up with this lead within 24 hours.
`

const confirmationTemplate = `Dear {{if .FirstName}}{{.FirstName}}{{else}}Valued Customer{{end}},

Thank you for your interest in Skyline Invest!

We have received your inquiry and one of our real estate specialists will
contact you within 24 hours.

YOUR INQUIRY DETAILS:
=====================
Name: {{.FirstName}} {{.LastName}}
Email: {{.Email}}
WhatsApp: {{.Whatsapp}}
Country: {{.Country}}
Preferred Contact: {{.ContactMethod}}
Buying Timeframe: {{.Timeframe}}
Property Interest: {{if .PropertyType}}{{.PropertyType}}{{else}}To be discussed{{end}}

Best regards,
Skyline Invest Sales Team

---
This is an automated confirmation. Please do not reply to this email.
`
