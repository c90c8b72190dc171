package email

import (
	"strings"
	"testing"
	"time"
)

func TestRenderLeadAssignedEscapesInput(t *testing.T) {
	html, err := renderLeadAssigned(LeadAssignedEmail{
		RecipientName: "Sam",
		LeadName:      "<script>alert(1)</script>",
		Reason:        "redistributed",
		LeadURL:       "https://crm.example/leads/1",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("lead name must be escaped")
	}
	if !strings.Contains(html, "a redistribution") {
		t.Fatal("expected readable reason")
	}
	if !strings.Contains(html, "https://crm.example/leads/1") {
		t.Fatal("expected call to action link")
	}
}

func TestRenderStaleLeads(t *testing.T) {
	html, err := renderStaleLeads(StaleLeadsEmail{
		RecipientName: "Ada",
		Count:         4,
		OldestSince:   time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "4 leads") || !strings.Contains(html, "9 Mar 2024") {
		t.Fatalf("unexpected body: %s", html)
	}
	if strings.Contains(html, "Review leads") {
		t.Fatal("no link configured, no button expected")
	}
}

func TestRenderImportSummary(t *testing.T) {
	html, err := renderImportSummary(ImportSummaryEmail{
		RecipientName: "Ada",
		Created:       5,
		Unassigned:    0,
		PerOwner:      []OwnerCount{{Name: "Sam", Count: 3}, {Name: "Kim", Count: 2}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "unassigned") {
		t.Fatal("unassigned note only appears when leads were left unassigned")
	}
	if !strings.Contains(html, "Kim") {
		t.Fatal("expected per-owner rows")
	}
}

type fakeConfig struct{ enabled bool }

func (f fakeConfig) GetEmailEnabled() bool     { return f.enabled }
func (fakeConfig) GetSMTPHost() string         { return "smtp.example" }
func (fakeConfig) GetSMTPPort() int            { return 587 }
func (fakeConfig) GetSMTPUsername() string     { return "" }
func (fakeConfig) GetSMTPPassword() string     { return "" }
func (fakeConfig) GetEmailFromName() string    { return "CRM" }
func (fakeConfig) GetEmailFromAddress() string { return "crm@example.com" }

func TestNewSenderFallsBackToNoop(t *testing.T) {
	if _, ok := NewSender(fakeConfig{enabled: false}).(NoopSender); !ok {
		t.Fatal("expected NoopSender when email is disabled")
	}
	if _, ok := NewSender(fakeConfig{enabled: true}).(*SMTPSender); !ok {
		t.Fatal("expected SMTPSender when email is enabled")
	}
}
