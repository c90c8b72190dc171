package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListForStats loads the rows an aggregation needs. With a Since bound it
// keeps leads created or closed inside the window so that both created and
// closed counts can be derived in-process.
func (r *Repository) ListForStats(ctx context.Context, filter StatsFilter) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE company_id = $1
			AND ($2::uuid IS NULL OR assigned_to = $2)
			AND ($3::timestamptz IS NULL OR created_at >= $3 OR closed_at >= $3)
		ORDER BY created_at ASC, id ASC
	`, filter.CompanyID, filter.AssignedTo, filter.Since)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// CountByStatus returns raw stored status counts with no alias folding.
func (r *Repository) CountByStatus(ctx context.Context, companyID uuid.UUID, assignedTo *uuid.UUID) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM leads
		WHERE company_id = $1 AND ($2::uuid IS NULL OR assigned_to = $2)
		GROUP BY status
	`, companyID, assignedTo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return counts, nil
}

// ListStale returns unworked leads whose dwell clock started at or before
// cutoff, oldest first.
func (r *Repository) ListStale(ctx context.Context, companyID uuid.UUID, cutoff time.Time) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE company_id = $1
			AND status IN ('fresh', 'rnr')
			AND dwell_started_at <= $2
		ORDER BY dwell_started_at ASC, created_at ASC, id ASC
	`, companyID, cutoff)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// ListRecentCalls returns a salesperson's leads called since the given time,
// newest call first.
func (r *Repository) ListRecentCalls(ctx context.Context, companyID, userID uuid.UUID, since time.Time, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE company_id = $1 AND assigned_to = $2 AND last_called >= $3
		ORDER BY last_called DESC, id ASC
		LIMIT $4
	`, companyID, userID, since, limit)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}
