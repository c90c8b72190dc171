// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"leadcrm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadsImported is published after an import batch has been committed.
type LeadsImported struct {
	BaseEvent
	CompanyID  uuid.UUID         `json:"companyId"`
	ActorID    uuid.UUID         `json:"actorId"`
	Created    int               `json:"created"`
	Unassigned int               `json:"unassigned"`
	PerOwner   map[uuid.UUID]int `json:"perOwner"`
}

func (e LeadsImported) EventName() string { return "leads.imported" }

// LeadAssigned is published once per lead whose owner changed through
// creation, assignment or redistribution.
type LeadAssigned struct {
	BaseEvent
	CompanyID       uuid.UUID  `json:"companyId"`
	LeadID          uuid.UUID  `json:"leadId"`
	LeadName        string     `json:"leadName"`
	AssignedTo      uuid.UUID  `json:"assignedTo"`
	PreviousOwnerID *uuid.UUID `json:"previousOwnerId,omitempty"`
	ActorID         uuid.UUID  `json:"actorId"`
	Reason          string     `json:"reason"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// LeadStatusChanged is published when a lead's stored status changes.
type LeadStatusChanged struct {
	BaseEvent
	CompanyID uuid.UUID `json:"companyId"`
	LeadID    uuid.UUID `json:"leadId"`
	ActorID   uuid.UUID `json:"actorId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// StaleLeadsDetected is published by the periodic scan when a company has
// leads that sat unworked past the stale threshold.
type StaleLeadsDetected struct {
	BaseEvent
	CompanyID   uuid.UUID   `json:"companyId"`
	LeadIDs     []uuid.UUID `json:"leadIds"`
	OldestSince time.Time   `json:"oldestSince"`
}

func (e StaleLeadsDetected) EventName() string { return "leads.stale_detected" }

// =============================================================================
// Identity Domain Events
// =============================================================================

// UserDeactivated is published when an admin deactivates a user. Existing
// lead ownership is left untouched.
type UserDeactivated struct {
	BaseEvent
	CompanyID uuid.UUID `json:"companyId"`
	UserID    uuid.UUID `json:"userId"`
}

func (e UserDeactivated) EventName() string { return "identity.user.deactivated" }
