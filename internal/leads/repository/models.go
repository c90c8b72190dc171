package repository

import (
	"time"

	"leadcrm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActivityType classifies an audit entry.
type ActivityType string

const (
	ActivityCall         ActivityType = "call"
	ActivityEmail        ActivityType = "email"
	ActivityMeeting      ActivityType = "meeting"
	ActivityNote         ActivityType = "note"
	ActivityStatusChange ActivityType = "status_change"
)

type Lead struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	Name           string
	Email          *string
	Phone          string
	Country        string
	Product        *string
	Source         *string
	Status         domain.Status
	Value          decimal.Decimal
	Notes          string
	LastCalled     *time.Time
	ClosedAt       *time.Time
	AssignedTo     *uuid.UUID
	DwellStartedAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Activity struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	UserID      *uuid.UUID
	Type        ActivityType
	Description string
	OldStatus   *string
	NewStatus   *string
	OldCountry  *string
	NewCountry  *string
	CreatedAt   time.Time
}

type CreateLeadParams struct {
	CompanyID  uuid.UUID
	Name       string
	Email      *string
	Phone      string
	Country    string
	Product    *string
	Source     *string
	Status     domain.Status
	Value      decimal.Decimal
	Notes      string
	ClosedAt   *time.Time
	AssignedTo *uuid.UUID
	// CreatedAt overrides the insert time. Imports carry the original date.
	CreatedAt *time.Time
}

// UpdateLeadParams is a partial update. Nil pointers leave the column as is.
// The *Set flags distinguish "clear" from "leave unchanged" for nullable columns.
type UpdateLeadParams struct {
	Status        *domain.Status
	ClosedAt      *time.Time
	ClosedAtSet   bool
	Notes         *string
	LastCalled    *time.Time
	LastCalledSet bool
	Value         *decimal.Decimal
	Country       *string
	Product       *string
	ProductSet    bool

	// OwnedBy restricts the write to a lead still assigned to this user.
	// It is a condition, not a column.
	OwnedBy *uuid.UUID
}

// IsEmpty reports whether the update touches no column.
func (p UpdateLeadParams) IsEmpty() bool {
	return p.Status == nil && !p.ClosedAtSet && p.Notes == nil && !p.LastCalledSet &&
		p.Value == nil && p.Country == nil && !p.ProductSet
}

type CreateActivityParams struct {
	LeadID      uuid.UUID
	UserID      *uuid.UUID
	Type        ActivityType
	Description string
	OldStatus   *string
	NewStatus   *string
	OldCountry  *string
	NewCountry  *string
}

// Reassignment moves one lead to a new owner inside a batch.
type Reassignment struct {
	LeadID     uuid.UUID
	AssignedTo *uuid.UUID
	// ResetToFresh forces the status back to fresh and restarts the dwell clock.
	ResetToFresh   bool
	DwellStartedAt time.Time
	Activities     []CreateActivityParams
}

type ListParams struct {
	CompanyID  uuid.UUID
	AssignedTo *uuid.UUID
	Status     *domain.Status
	Search     string
	SortBy     string
	SortOrder  string
	Offset     int
	Limit      int
}

// StatsFilter scopes the lead rows loaded for in-process aggregation.
type StatsFilter struct {
	CompanyID  uuid.UUID
	AssignedTo *uuid.UUID
	// Since keeps leads created or closed on or after this instant. Nil loads all.
	Since *time.Time
}
