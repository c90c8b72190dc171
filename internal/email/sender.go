// Package email renders and delivers transactional emails.
package email

import (
	"context"
	"time"
)

// LeadAssignedEmail tells a salesperson a lead is now theirs.
type LeadAssignedEmail struct {
	RecipientName string
	LeadName      string
	Reason        string
	LeadURL       string
}

// StaleLeadsEmail is the digest sent to company admins.
type StaleLeadsEmail struct {
	RecipientName string
	Count         int
	OldestSince   time.Time
	ReviewURL     string
}

// ImportSummaryEmail reports the outcome of a lead import to its uploader.
type ImportSummaryEmail struct {
	RecipientName string
	Created       int
	Unassigned    int
	PerOwner      []OwnerCount
}

type OwnerCount struct {
	Name  string
	Count int
}

type Sender interface {
	SendLeadAssignedEmail(ctx context.Context, toEmail string, data LeadAssignedEmail) error
	SendStaleLeadsEmail(ctx context.Context, toEmail string, data StaleLeadsEmail) error
	SendImportSummaryEmail(ctx context.Context, toEmail string, data ImportSummaryEmail) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender drops every email. It is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendLeadAssignedEmail(context.Context, string, LeadAssignedEmail) error {
	return nil
}

func (NoopSender) SendStaleLeadsEmail(context.Context, string, StaleLeadsEmail) error {
	return nil
}

func (NoopSender) SendImportSummaryEmail(context.Context, string, ImportSummaryEmail) error {
	return nil
}

func (NoopSender) SendCustomEmail(context.Context, string, string, string) error {
	return nil
}

var _ Sender = NoopSender{}
