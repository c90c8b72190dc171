package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// Config is the SMTP configuration the sender reads.
type Config interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NewSender returns an SMTP sender, or a NoopSender when email is disabled.
func NewSender(cfg Config) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName())
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendLeadAssignedEmail(ctx context.Context, toEmail string, data LeadAssignedEmail) error {
	content, err := renderLeadAssigned(data)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectLeadAssignedFmt, data.LeadName), content)
}

func (s *SMTPSender) SendStaleLeadsEmail(ctx context.Context, toEmail string, data StaleLeadsEmail) error {
	content, err := renderStaleLeads(data)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectStaleLeadsFmt, data.Count), content)
}

func (s *SMTPSender) SendImportSummaryEmail(ctx context.Context, toEmail string, data ImportSummaryEmail) error {
	content, err := renderImportSummary(data)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectImportSummaryFmt, data.Created), content)
}

func (s *SMTPSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return s.send(ctx, toEmail, subject, htmlContent)
}

func renderLeadAssigned(data LeadAssignedEmail) (string, error) {
	return renderEmailTemplate("lead_assigned.html", leadAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:    "New lead assigned",
			Heading:  "A new lead is waiting for you",
			CTALabel: "Open lead",
			CTAURL:   data.LeadURL,
		},
		RecipientName: data.RecipientName,
		LeadName:      data.LeadName,
		Reason:        reasonLabel(data.Reason),
	})
}

func renderStaleLeads(data StaleLeadsEmail) (string, error) {
	return renderEmailTemplate("stale_leads.html", staleLeadsEmailData{
		baseEmailData: baseEmailData{
			Title:    "Stale leads",
			Heading:  "Leads need attention",
			CTALabel: "Review leads",
			CTAURL:   data.ReviewURL,
		},
		RecipientName: data.RecipientName,
		Count:         data.Count,
		OldestSince:   data.OldestSince.Format("2 Jan 2006"),
	})
}

func renderImportSummary(data ImportSummaryEmail) (string, error) {
	return renderEmailTemplate("import_summary.html", importSummaryEmailData{
		baseEmailData: baseEmailData{
			Title:   "Import finished",
			Heading: "Your lead import is done",
		},
		RecipientName: data.RecipientName,
		Created:       data.Created,
		Unassigned:    data.Unassigned,
		PerOwner:      data.PerOwner,
	})
}

var _ Sender = (*SMTPSender)(nil)
