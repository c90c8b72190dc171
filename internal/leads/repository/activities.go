package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const activityColumns = `id, lead_id, user_id, type, description, old_status, new_status, old_country, new_country, created_at`

func scanActivity(row rowScanner) (Activity, error) {
	var a Activity
	err := row.Scan(
		&a.ID, &a.LeadID, &a.UserID, &a.Type, &a.Description,
		&a.OldStatus, &a.NewStatus, &a.OldCountry, &a.NewCountry, &a.CreatedAt,
	)
	return a, err
}

func insertActivity(ctx context.Context, q querier, params CreateActivityParams) (Activity, error) {
	return scanActivity(q.QueryRow(ctx, `
		INSERT INTO lead_activities (lead_id, user_id, type, description, old_status, new_status, old_country, new_country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+activityColumns,
		params.LeadID, params.UserID, string(params.Type), params.Description,
		params.OldStatus, params.NewStatus, params.OldCountry, params.NewCountry,
	))
}

func (r *Repository) AddActivity(ctx context.Context, params CreateActivityParams) (Activity, error) {
	return insertActivity(ctx, r.pool, params)
}

// ListActivities returns a lead's audit trail in insertion order.
func (r *Repository) ListActivities(ctx context.Context, leadID uuid.UUID) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+activityColumns+`
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY seq ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

// ListActivitiesByUser returns the most recent entries authored by a user.
func (r *Repository) ListActivitiesByUser(ctx context.Context, companyID, userID uuid.UUID, limit int) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.lead_id, a.user_id, a.type, a.description, a.old_status, a.new_status,
			a.old_country, a.new_country, a.created_at
		FROM lead_activities a
		JOIN leads l ON l.id = a.lead_id
		WHERE a.user_id = $1 AND l.company_id = $2
		ORDER BY a.seq DESC
		LIMIT $3
	`, userID, companyID, limit)
	if err != nil {
		return nil, err
	}
	return collectActivities(rows)
}

func collectActivities(rows pgx.Rows) ([]Activity, error) {
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
