// Package notification provides event handlers for sending notifications
// in response to domain events.
// This module subscribes to events and inverts the dependency: domain modules
// no longer need to know about email providers or templates.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"leadcrm_backend/internal/email"
	"leadcrm_backend/internal/events"
	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// ErrRecipientNotFound is returned by Directory when no user matches.
var ErrRecipientNotFound = errors.New("recipient not found")

// Recipient is the addressing data for a user of a company.
type Recipient struct {
	ID       uuid.UUID
	Name     string
	Email    string
	IsActive bool
}

// Directory resolves who receives notifications.
type Directory interface {
	GetRecipient(ctx context.Context, companyID, userID uuid.UUID) (Recipient, error)
	ListAdminRecipients(ctx context.Context, companyID uuid.UUID) ([]Recipient, error)
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender email.Sender
	users  Directory
	cfg    config.NotificationConfig
	log    *logger.Logger
}

// New creates the notification module.
func New(sender email.Sender, users Directory, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{sender: sender, users: users, cfg: cfg, log: log}
}

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadAssigned{}.EventName(), m)
	bus.Subscribe(events.StaleLeadsDetected{}.EventName(), m)
	bus.Subscribe(events.LeadsImported{}.EventName(), m)
}

// Handle routes events to specific handlers.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadAssigned:
		return m.handleLeadAssigned(ctx, e)
	case events.StaleLeadsDetected:
		return m.handleStaleLeadsDetected(ctx, e)
	case events.LeadsImported:
		return m.handleLeadsImported(ctx, e)
	default:
		m.log.Debug("unhandled event", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadAssigned(ctx context.Context, e events.LeadAssigned) error {
	// Self-assignment needs no email.
	if e.AssignedTo == e.ActorID {
		return nil
	}

	owner, err := m.users.GetRecipient(ctx, e.CompanyID, e.AssignedTo)
	if err != nil {
		return m.recipientError("lead assigned", e.AssignedTo, err)
	}
	if !owner.IsActive || owner.Email == "" {
		return nil
	}

	err = m.sender.SendLeadAssignedEmail(ctx, owner.Email, email.LeadAssignedEmail{
		RecipientName: owner.Name,
		LeadName:      e.LeadName,
		Reason:        e.Reason,
		LeadURL:       m.url("/leads/" + e.LeadID.String()),
	})
	if err != nil {
		m.log.Error("failed to send lead assigned email", "error", err, "leadId", e.LeadID, "userId", owner.ID)
		return fmt.Errorf("send lead assigned email: %w", err)
	}
	m.log.Info("lead assigned email sent", "leadId", e.LeadID, "userId", owner.ID)
	return nil
}

func (m *Module) handleStaleLeadsDetected(ctx context.Context, e events.StaleLeadsDetected) error {
	if len(e.LeadIDs) == 0 {
		return nil
	}

	admins, err := m.users.ListAdminRecipients(ctx, e.CompanyID)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}

	var errs []error
	for _, admin := range admins {
		if admin.Email == "" {
			continue
		}
		err := m.sender.SendStaleLeadsEmail(ctx, admin.Email, email.StaleLeadsEmail{
			RecipientName: admin.Name,
			Count:         len(e.LeadIDs),
			OldestSince:   e.OldestSince,
			ReviewURL:     m.url("/leads?status=fresh"),
		})
		if err != nil {
			m.log.Error("failed to send stale leads digest", "error", err, "companyId", e.CompanyID, "userId", admin.ID)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Module) handleLeadsImported(ctx context.Context, e events.LeadsImported) error {
	uploader, err := m.users.GetRecipient(ctx, e.CompanyID, e.ActorID)
	if err != nil {
		return m.recipientError("leads imported", e.ActorID, err)
	}
	if uploader.Email == "" {
		return nil
	}

	perOwner := make([]email.OwnerCount, 0, len(e.PerOwner))
	for ownerID, count := range e.PerOwner {
		name := ownerID.String()
		if owner, err := m.users.GetRecipient(ctx, e.CompanyID, ownerID); err == nil {
			name = owner.Name
		}
		perOwner = append(perOwner, email.OwnerCount{Name: name, Count: count})
	}
	sort.Slice(perOwner, func(i, j int) bool {
		if perOwner[i].Count != perOwner[j].Count {
			return perOwner[i].Count > perOwner[j].Count
		}
		return perOwner[i].Name < perOwner[j].Name
	})

	err = m.sender.SendImportSummaryEmail(ctx, uploader.Email, email.ImportSummaryEmail{
		RecipientName: uploader.Name,
		Created:       e.Created,
		Unassigned:    e.Unassigned,
		PerOwner:      perOwner,
	})
	if err != nil {
		m.log.Error("failed to send import summary", "error", err, "companyId", e.CompanyID)
		return fmt.Errorf("send import summary: %w", err)
	}
	return nil
}

// recipientError drops notifications for users deleted since the event.
func (m *Module) recipientError(kind string, userID uuid.UUID, err error) error {
	if errors.Is(err, ErrRecipientNotFound) {
		m.log.Warn("notification recipient missing", "notification", kind, "userId", userID)
		return nil
	}
	return fmt.Errorf("resolve recipient: %w", err)
}

func (m *Module) url(path string) string {
	base := m.cfg.GetAppBaseURL()
	if base == "" {
		return ""
	}
	return base + path
}
