package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type leadAssignedEmailData struct {
	baseEmailData
	RecipientName string
	LeadName      string
	Reason        string
}

type staleLeadsEmailData struct {
	baseEmailData
	RecipientName string
	Count         int
	OldestSince   string
}

type importSummaryEmailData struct {
	baseEmailData
	RecipientName string
	Created       int
	Unassigned    int
	PerOwner      []OwnerCount
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// reasonLabel turns an assignment reason into readable text.
func reasonLabel(reason string) string {
	switch reason {
	case "redistributed":
		return "a redistribution"
	case "assigned":
		return "a manual assignment"
	case "created":
		return "a new lead entry"
	default:
		return "an assignment"
	}
}
