package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs
type CreateLeadRequest struct {
	Name    string         `json:"name" validate:"required,min=1,max=200"`
	Phone   string         `json:"phone" validate:"required,min=1,max=40"`
	Country string         `json:"country" validate:"required,min=1,max=100"`
	Email   string         `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Product string         `json:"product,omitempty" validate:"max=200"`
	Source  string         `json:"source,omitempty" validate:"max=200"`
	Notes   string         `json:"notes,omitempty" validate:"max=5000"`
	Value   OptionalNumber `json:"value,omitempty" validate:"-"`
	// AssignedTo is honored for admins and accountants only.
	AssignedTo OptionalUUID `json:"assignedTo,omitempty" validate:"-"`
}

type UpdateLeadRequest struct {
	Status     *string        `json:"status,omitempty" validate:"omitempty,leadstatus"`
	Notes      *string        `json:"notes,omitempty" validate:"omitempty,max=5000"`
	LastCalled OptionalString `json:"lastCalled,omitempty" validate:"-"`
	Value      OptionalNumber `json:"value,omitempty" validate:"-"`
	Country    *string        `json:"country,omitempty" validate:"omitempty,max=100"`
	Product    OptionalString `json:"product,omitempty" validate:"-"`
}

type AddActivityRequest struct {
	Type        string `json:"type" validate:"required,oneof=call email meeting note"`
	Description string `json:"description" validate:"required,min=1,max=2000"`
}

type ListLeadsRequest struct {
	Status     string `form:"status" validate:"omitempty,leadstatus"`
	AssignedTo string `form:"assignedTo" validate:"omitempty,uuid"`
	Search     string `form:"search" validate:"max=100"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
	SortBy     string `form:"sortBy" validate:"omitempty,oneof=createdAt updatedAt name status value lastCalled"`
	SortOrder  string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

type RedistributeRequest struct {
	LeadIDs []uuid.UUID `json:"leadIds" validate:"required,min=1,max=1000"`
}

type AssignRequest struct {
	LeadIDs  []uuid.UUID `json:"leadIds" validate:"required,min=1,max=1000"`
	AssignTo uuid.UUID   `json:"assignTo"`
}

// Response DTOs
type LeadResponse struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Email      *string         `json:"email,omitempty"`
	Phone      string          `json:"phone"`
	Country    string          `json:"country"`
	Product    *string         `json:"product,omitempty"`
	Source     *string         `json:"source,omitempty"`
	Status     string          `json:"status"`
	Value      decimal.Decimal `json:"value"`
	Notes      string          `json:"notes"`
	LastCalled *time.Time      `json:"lastCalled,omitempty"`
	ClosedAt   *time.Time      `json:"closedAt,omitempty"`
	AssignedTo *uuid.UUID      `json:"assignedTo,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type ActivityResponse struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"leadId"`
	UserID      *uuid.UUID `json:"userId,omitempty"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	OldStatus   *string    `json:"oldStatus,omitempty"`
	NewStatus   *string    `json:"newStatus,omitempty"`
	OldCountry  *string    `json:"oldCountry,omitempty"`
	NewCountry  *string    `json:"newCountry,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type ImportResponse struct {
	Created    int            `json:"created"`
	Unassigned int            `json:"unassigned"`
	PerOwner   map[string]int `json:"perOwner"`
	Skipped    []SkippedRow   `json:"skipped"`
	ArchiveKey string         `json:"archiveKey,omitempty"`
}

type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type LeadsResponse struct {
	Items []LeadResponse `json:"items"`
	Count int            `json:"count"`
}
