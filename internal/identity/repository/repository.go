package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrSeatLimit means the company already has max_users active users.
	ErrSeatLimit = errors.New("seat limit reached")
)

const uniqueViolation = "23505"

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Company struct {
	ID                 uuid.UUID
	Name               string
	SubscriptionStatus string
	MaxUsers           int
	LogoURL            *string
	PrimaryColor       *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type User struct {
	ID            uuid.UUID
	CompanyID     *uuid.UUID
	Name          string
	Email         string
	Phone         *string
	Role          string
	IsActive      bool
	MonthlyTarget int
	WeeklyTarget  int
	PasswordHash  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CreateCompanyParams struct {
	Name               string
	SubscriptionStatus string
	MaxUsers           int
	LogoURL            *string
	PrimaryColor       *string
}

// UpdateCompanyParams leaves nil fields unchanged.
type UpdateCompanyParams struct {
	Name               *string
	SubscriptionStatus *string
	MaxUsers           *int
	LogoURL            *string
	PrimaryColor       *string
}

type CreateUserParams struct {
	CompanyID     *uuid.UUID
	Name          string
	Email         string
	Phone         *string
	Role          string
	MonthlyTarget int
	WeeklyTarget  int
	PasswordHash  string
}

// UpdateUserParams leaves nil fields unchanged.
type UpdateUserParams struct {
	Name          *string
	Phone         *string
	Role          *string
	MonthlyTarget *int
	WeeklyTarget  *int
}

const companyColumns = `id, name, subscription_status, max_users, logo_url, primary_color, created_at, updated_at`

const userColumns = `id, company_id, name, email, phone, role, is_active, monthly_target, weekly_target, password_hash, created_at, updated_at`

const listUsersByCompanyQuery = `
    SELECT ` + userColumns + `
    FROM users
    WHERE company_id = $1
    ORDER BY created_at, id
`

// The roster order is the round-robin order, so it must be stable.
const listActiveSalespeopleQuery = `
    SELECT ` + userColumns + `
    FROM users
    WHERE company_id = $1 AND role = 'salesperson' AND is_active
    ORDER BY created_at, id
`

const listAdminsQuery = `
    SELECT ` + userColumns + `
    FROM users
    WHERE company_id = $1 AND role = 'admin' AND is_active
    ORDER BY created_at, id
`

// lockCompanySeatsQuery serializes seat checks per company.
const lockCompanySeatsQuery = `
    SELECT c.max_users,
           (SELECT count(*) FROM users u WHERE u.company_id = c.id AND u.is_active)
    FROM companies c
    WHERE c.id = $1
    FOR UPDATE
`

func scanCompany(row pgx.Row) (Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Name, &c.SubscriptionStatus, &c.MaxUsers, &c.LogoURL, &c.PrimaryColor, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrNotFound
	}
	return c, err
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.CompanyID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.Role,
		&u.IsActive,
		&u.MonthlyTarget,
		&u.WeeklyTarget,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	defer rows.Close()
	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

func (r *Repository) CreateCompany(ctx context.Context, params CreateCompanyParams) (Company, error) {
	return scanCompany(r.pool.QueryRow(ctx, `
    INSERT INTO companies (name, subscription_status, max_users, logo_url, primary_color)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING `+companyColumns,
		params.Name, params.SubscriptionStatus, params.MaxUsers, params.LogoURL, params.PrimaryColor))
}

func (r *Repository) GetCompany(ctx context.Context, companyID uuid.UUID) (Company, error) {
	return scanCompany(r.pool.QueryRow(ctx, `
    SELECT `+companyColumns+`
    FROM companies
    WHERE id = $1
  `, companyID))
}

func (r *Repository) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := make([]Company, 0)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (r *Repository) UpdateCompany(ctx context.Context, companyID uuid.UUID, params UpdateCompanyParams) (Company, error) {
	return scanCompany(r.pool.QueryRow(ctx, `
    UPDATE companies
    SET name = COALESCE($2, name),
        subscription_status = COALESCE($3, subscription_status),
        max_users = COALESCE($4, max_users),
        logo_url = COALESCE($5, logo_url),
        primary_color = COALESCE($6, primary_color),
        updated_at = now()
    WHERE id = $1
    RETURNING `+companyColumns,
		companyID, params.Name, params.SubscriptionStatus, params.MaxUsers, params.LogoURL, params.PrimaryColor))
}

func insertUser(ctx context.Context, q DBTX, params CreateUserParams) (User, error) {
	user, err := scanUser(q.QueryRow(ctx, `
    INSERT INTO users (company_id, name, email, phone, role, monthly_target, weekly_target, password_hash)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    RETURNING `+userColumns,
		params.CompanyID, params.Name, params.Email, params.Phone, params.Role,
		params.MonthlyTarget, params.WeeklyTarget, params.PasswordHash))
	return user, mapWriteError(err)
}

// withSeat runs fn in a transaction holding the company row lock, after
// checking one more active user still fits.
func (r *Repository) withSeat(ctx context.Context, companyID uuid.UUID, fn func(tx pgx.Tx) (User, error)) (user User, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return User{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var maxUsers, active int
	err = tx.QueryRow(ctx, lockCompanySeatsQuery, companyID).Scan(&maxUsers, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if active >= maxUsers {
		err = ErrSeatLimit
		return User{}, err
	}

	user, err = fn(tx)
	if err != nil {
		return User{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return User{}, err
	}
	return user, nil
}

// CreateUser inserts a user. Users of a company take a seat; company-less
// super admins do not.
func (r *Repository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	if params.CompanyID == nil {
		return insertUser(ctx, r.pool, params)
	}
	return r.withSeat(ctx, *params.CompanyID, func(tx pgx.Tx) (User, error) {
		return insertUser(ctx, tx, params)
	})
}

func (r *Repository) GetUser(ctx context.Context, userID uuid.UUID) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

func (r *Repository) ListUsers(ctx context.Context, companyID uuid.UUID) ([]User, error) {
	rows, err := r.pool.Query(ctx, listUsersByCompanyQuery, companyID)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r *Repository) ListActiveSalespeople(ctx context.Context, companyID uuid.UUID) ([]User, error) {
	rows, err := r.pool.Query(ctx, listActiveSalespeopleQuery, companyID)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r *Repository) ListAdmins(ctx context.Context, companyID uuid.UUID) ([]User, error) {
	rows, err := r.pool.Query(ctx, listAdminsQuery, companyID)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r *Repository) UpdateUser(ctx context.Context, userID uuid.UUID, params UpdateUserParams) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
    UPDATE users
    SET name = COALESCE($2, name),
        phone = COALESCE($3, phone),
        role = COALESCE($4, role),
        monthly_target = COALESCE($5, monthly_target),
        weekly_target = COALESCE($6, weekly_target),
        updated_at = now()
    WHERE id = $1
    RETURNING `+userColumns,
		userID, params.Name, params.Phone, params.Role, params.MonthlyTarget, params.WeeklyTarget))
}

// Activate marks the user active, taking a seat in their company.
func (r *Repository) Activate(ctx context.Context, companyID, userID uuid.UUID) (User, error) {
	return r.withSeat(ctx, companyID, func(tx pgx.Tx) (User, error) {
		return scanUser(tx.QueryRow(ctx, `
        UPDATE users SET is_active = true, updated_at = now()
        WHERE id = $1 AND company_id = $2
        RETURNING `+userColumns, userID, companyID))
	})
}

// Deactivate marks the user inactive. Lead ownership is not touched.
func (r *Repository) Deactivate(ctx context.Context, userID uuid.UUID) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
    UPDATE users SET is_active = false, updated_at = now()
    WHERE id = $1
    RETURNING `+userColumns, userID))
}

// DeleteUser removes the user; owned leads become unassigned through the
// foreign key.
func (r *Repository) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SeatUsage returns active users and the seat limit of the company.
func (r *Repository) SeatUsage(ctx context.Context, companyID uuid.UUID) (active, maxUsers int, err error) {
	err = r.pool.QueryRow(ctx, `
    SELECT (SELECT count(*) FROM users u WHERE u.company_id = c.id AND u.is_active), c.max_users
    FROM companies c
    WHERE c.id = $1
  `, companyID).Scan(&active, &maxUsers)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, ErrNotFound
	}
	return active, maxUsers, err
}
