package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const userColumns = `id, name, email, password_hash, phone_number, role, department, ward_number,
    enabled, tickets_resolved, tickets_reopened, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.PasswordHash,
		&i.PhoneNumber,
		&i.Role,
		&i.Department,
		&i.WardNumber,
		&i.Enabled,
		&i.TicketsResolved,
		&i.TicketsReopened,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanUsers(rows *sql.Rows) ([]User, error) {
	defer rows.Close()
	var items []User
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (name, email, password_hash, phone_number, role, department, ward_number, enabled)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + userColumns

type CreateUserParams struct {
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"password_hash"`
	PhoneNumber  sql.NullString `json:"phone_number"`
	Role         string         `json:"role"`
	Department   sql.NullString `json:"department"`
	WardNumber   sql.NullString `json:"ward_number"`
	Enabled      bool           `json:"enabled"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Name,
		arg.Email,
		arg.PasswordHash,
		arg.PhoneNumber,
		arg.Role,
		arg.Department,
		arg.WardNumber,
		arg.Enabled,
	)
	return scanUser(row)
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users
WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByIDForUpdate = `-- name: GetUserByIDForUpdate :one
SELECT ` + userColumns + ` FROM users
WHERE id = $1
FOR UPDATE`

func (q *Queries) GetUserByIDForUpdate(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByIDForUpdate, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users
WHERE email = LOWER($1)`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const listUsersByRole = `-- name: ListUsersByRole :many
SELECT ` + userColumns + ` FROM users
WHERE role = $1
ORDER BY name`

func (q *Queries) ListUsersByRole(ctx context.Context, role string) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsersByRole, role)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

const listEnabledUsersByRole = `-- name: ListEnabledUsersByRole :many
SELECT ` + userColumns + ` FROM users
WHERE role = $1 AND enabled = true
ORDER BY name`

func (q *Queries) ListEnabledUsersByRole(ctx context.Context, role string) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listEnabledUsersByRole, role)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

const listPendingOfficers = `-- name: ListPendingOfficers :many
SELECT ` + userColumns + ` FROM users
WHERE role = 'OFFICER' AND enabled = false
ORDER BY created_at`

func (q *Queries) ListPendingOfficers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listPendingOfficers)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

const enableUser = `-- name: EnableUser :exec
UPDATE users
SET enabled = true, updated_at = NOW()
WHERE id = $1`

func (q *Queries) EnableUser(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, enableUser, id)
	return err
}

const updateUserPassword = `-- name: UpdateUserPassword :execrows
UPDATE users
SET password_hash = $2, updated_at = NOW()
WHERE lower(email) = lower($1)`

type UpdateUserPasswordParams struct {
	Email        string
	PasswordHash string
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserPassword, arg.Email, arg.PasswordHash)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const incrementTicketsResolved = `-- name: IncrementTicketsResolved :execrows
UPDATE users
SET tickets_resolved = tickets_resolved + 1, updated_at = NOW()
WHERE id = $1`

func (q *Queries) IncrementTicketsResolved(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.ExecContext(ctx, incrementTicketsResolved, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const incrementTicketsReopened = `-- name: IncrementTicketsReopened :execrows
UPDATE users
SET tickets_reopened = tickets_reopened + 1, updated_at = NOW()
WHERE id = $1`

func (q *Queries) IncrementTicketsReopened(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.ExecContext(ctx, incrementTicketsReopened, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
