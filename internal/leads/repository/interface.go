package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, companyID, id uuid.UUID) (Lead, error)
	GetByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
}

// LeadWriter provides write operations for lead management.
// Methods that take activities commit the row change and its audit entries
// in one transaction and return the reloaded rows.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	CreateBatch(ctx context.Context, params []CreateLeadParams) ([]Lead, error)
	UpdateWithActivities(ctx context.Context, companyID, id uuid.UUID, params UpdateLeadParams, activities []CreateActivityParams) (Lead, error)
	Reassign(ctx context.Context, companyID uuid.UUID, moves []Reassignment) ([]Lead, error)
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}

// ActivityStore records and reads the append-only audit trail.
type ActivityStore interface {
	AddActivity(ctx context.Context, params CreateActivityParams) (Activity, error)
	ListActivities(ctx context.Context, leadID uuid.UUID) ([]Activity, error)
	ListActivitiesByUser(ctx context.Context, companyID, userID uuid.UUID, limit int) ([]Activity, error)
}

// StatsReader provides the raw rows behind dashboards and leaderboards.
type StatsReader interface {
	ListForStats(ctx context.Context, filter StatsFilter) ([]Lead, error)
	CountByStatus(ctx context.Context, companyID uuid.UUID, assignedTo *uuid.UUID) (map[string]int, error)
	ListStale(ctx context.Context, companyID uuid.UUID, cutoff time.Time) ([]Lead, error)
	ListRecentCalls(ctx context.Context, companyID, userID uuid.UUID, since time.Time, limit int) ([]Lead, error)
}

// LeadsRepository combines all lead-related repository interfaces.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	ActivityStore
	StatsReader
}

var _ LeadsRepository = (*Repository)(nil)
