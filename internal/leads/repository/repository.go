package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrNotOwner reports a guarded write on a lead assigned to someone else.
	ErrNotOwner = errors.New("lead is not assigned to the caller")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, company_id, name, email, phone, country, product, source, status, value, notes,
	last_called, closed_at, assigned_to, dwell_started_at, created_at, updated_at`

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.CompanyID, &lead.Name, &lead.Email, &lead.Phone, &lead.Country,
		&lead.Product, &lead.Source, &lead.Status, &lead.Value, &lead.Notes,
		&lead.LastCalled, &lead.ClosedAt, &lead.AssignedTo, &lead.DwellStartedAt,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}

// querier is the subset shared by the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertLead(ctx context.Context, q querier, params CreateLeadParams) (Lead, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO leads (
			company_id, name, email, phone, country, product, source, status, value, notes,
			closed_at, assigned_to, dwell_started_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13::timestamptz, now()), COALESCE($13::timestamptz, now()), now())
		RETURNING `+leadColumns,
		params.CompanyID, params.Name, params.Email, params.Phone, params.Country, params.Product, params.Source,
		string(params.Status), params.Value, params.Notes, params.ClosedAt, params.AssignedTo, params.CreatedAt,
	)
	return scanLead(row)
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	return insertLead(ctx, r.pool, params)
}

// CreateBatch inserts all leads in one transaction, preserving input order.
func (r *Repository) CreateBatch(ctx context.Context, params []CreateLeadParams) ([]Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	leads := make([]Lead, 0, len(params))
	for _, p := range params {
		var lead Lead
		lead, err = insertLead(ctx, tx, p)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return leads, nil
}

func (r *Repository) GetByID(ctx context.Context, companyID, id uuid.UUID) (Lead, error) {
	return getLead(ctx, r.pool, companyID, id)
}

func getLead(ctx context.Context, q querier, companyID, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(q.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE id = $1 AND company_id = $2
	`, id, companyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// GetByIDs returns the matching leads in the order of ids. Unknown ids are
// omitted; callers compare lengths to detect them.
func (r *Repository) GetByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]Lead, error) {
	if len(ids) == 0 {
		return []Lead{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE company_id = $1 AND id = ANY($2)
		ORDER BY array_position($2::uuid[], id)
	`, companyID, ids)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortColumn := mapLeadSortColumn(params.SortBy)
	sortOrder := "DESC"
	if params.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE %s
		ORDER BY %s %s, id ASC
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, sortColumn, sortOrder, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	leads, err := collectLeads(rows)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []interface{}, int) {
	// Company ID is always the first filter (mandatory for tenant isolation)
	whereClauses := []string{"company_id = $1"}
	args := []interface{}{params.CompanyID}
	argIdx := 2

	if params.AssignedTo != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("assigned_to = $%d", argIdx))
		args = append(args, *params.AssignedTo)
		argIdx++
	}
	if params.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*params.Status))
		argIdx++
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d OR country ILIKE $%d)",
			argIdx, argIdx, argIdx, argIdx,
		))
		args = append(args, "%"+search+"%")
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

func mapLeadSortColumn(sortBy string) string {
	switch sortBy {
	case "name":
		return "name"
	case "status":
		return "status"
	case "value":
		return "value"
	case "lastCalled":
		return "last_called"
	case "updatedAt":
		return "updated_at"
	default:
		return "created_at"
	}
}

// UpdateWithActivities applies a partial update and appends the audit
// entries in the same transaction, then returns the reloaded row.
func (r *Repository) UpdateWithActivities(ctx context.Context, companyID, id uuid.UUID, params UpdateLeadParams, activities []CreateActivityParams) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	setClause, args := buildLeadUpdateSet(params)
	args = append(args, id, companyID, params.OwnedBy)
	tag, err := tx.Exec(ctx, fmt.Sprintf(
		"UPDATE leads SET %s WHERE id = $%d AND company_id = $%d AND ($%d::uuid IS NULL OR assigned_to = $%d)",
		setClause, len(args)-2, len(args)-1, len(args), len(args),
	), args...)
	if err != nil {
		return Lead{}, err
	}
	if tag.RowsAffected() == 0 {
		err = ErrNotFound
		if params.OwnedBy != nil {
			var exists bool
			if qerr := tx.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1 AND company_id = $2)`,
				id, companyID,
			).Scan(&exists); qerr != nil {
				err = qerr
			} else if exists {
				err = ErrNotOwner
			}
		}
		return Lead{}, err
	}

	for _, a := range activities {
		if _, err = insertActivity(ctx, tx, a); err != nil {
			return Lead{}, err
		}
	}

	var lead Lead
	lead, err = getLead(ctx, tx, companyID, id)
	if err != nil {
		return Lead{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func buildLeadUpdateSet(params UpdateLeadParams) (string, []interface{}) {
	sets := []string{"updated_at = now()"}
	args := make([]interface{}, 0, 8)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Status != nil {
		add("status", string(*params.Status))
	}
	if params.ClosedAtSet {
		add("closed_at", params.ClosedAt)
	}
	if params.Notes != nil {
		add("notes", *params.Notes)
	}
	if params.LastCalledSet {
		add("last_called", params.LastCalled)
	}
	if params.Value != nil {
		add("value", *params.Value)
	}
	if params.Country != nil {
		add("country", *params.Country)
	}
	if params.ProductSet {
		add("product", params.Product)
	}

	return strings.Join(sets, ", "), args
}

// Reassign applies a batch of ownership moves atomically. Any missing lead
// aborts the whole batch with ErrNotFound.
func (r *Repository) Reassign(ctx context.Context, companyID uuid.UUID, moves []Reassignment) ([]Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	leads := make([]Lead, 0, len(moves))
	for _, move := range moves {
		var row pgx.Row
		if move.ResetToFresh {
			row = tx.QueryRow(ctx, `
				UPDATE leads
				SET assigned_to = $1, status = 'fresh', closed_at = NULL, dwell_started_at = $2, updated_at = now()
				WHERE id = $3 AND company_id = $4
				RETURNING `+leadColumns,
				move.AssignedTo, move.DwellStartedAt, move.LeadID, companyID)
		} else {
			row = tx.QueryRow(ctx, `
				UPDATE leads
				SET assigned_to = $1, updated_at = now()
				WHERE id = $2 AND company_id = $3
				RETURNING `+leadColumns,
				move.AssignedTo, move.LeadID, companyID)
		}

		var lead Lead
		lead, err = scanLead(row)
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrNotFound
			return nil, err
		}
		if err != nil {
			return nil, err
		}

		for _, a := range move.Activities {
			if _, err = insertActivity(ctx, tx, a); err != nil {
				return nil, err
			}
		}
		leads = append(leads, lead)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return leads, nil
}

// Delete hard-deletes a lead. Activities cascade.
func (r *Repository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
