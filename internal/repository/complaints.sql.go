package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const complaintColumns = `id, user_id, category_id, assigned_to, title, description, image_url, location,
    latitude, longitude, status, priority, admin_comment, materials_used, resolution_proof_url,
    resolved_latitude, resolved_longitude, citizen_rating, citizen_feedback, assigned_at,
    created_at, updated_at`

func complaintFields(i *Complaint) []interface{} {
	return []interface{}{
		&i.ID,
		&i.UserID,
		&i.CategoryID,
		&i.AssignedTo,
		&i.Title,
		&i.Description,
		&i.ImageUrl,
		&i.Location,
		&i.Latitude,
		&i.Longitude,
		&i.Status,
		&i.Priority,
		&i.AdminComment,
		&i.MaterialsUsed,
		&i.ResolutionProofUrl,
		&i.ResolvedLatitude,
		&i.ResolvedLongitude,
		&i.CitizenRating,
		&i.CitizenFeedback,
		&i.AssignedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
}

const createComplaint = `-- name: CreateComplaint :one
INSERT INTO complaints (
    id, user_id, category_id, title, description, image_url, location,
    latitude, longitude, status, priority, created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12
)
RETURNING ` + complaintColumns

type CreateComplaintParams struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	CategoryID  int32           `json:"category_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ImageUrl    sql.NullString  `json:"image_url"`
	Location    string          `json:"location"`
	Latitude    sql.NullFloat64 `json:"latitude"`
	Longitude   sql.NullFloat64 `json:"longitude"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (q *Queries) CreateComplaint(ctx context.Context, arg CreateComplaintParams) (Complaint, error) {
	row := q.db.QueryRowContext(ctx, createComplaint,
		arg.ID,
		arg.UserID,
		arg.CategoryID,
		arg.Title,
		arg.Description,
		arg.ImageUrl,
		arg.Location,
		arg.Latitude,
		arg.Longitude,
		arg.Status,
		arg.Priority,
		arg.CreatedAt,
	)
	var i Complaint
	err := row.Scan(complaintFields(&i)...)
	return i, err
}

const getComplaintByID = `-- name: GetComplaintByID :one
SELECT ` + complaintColumns + ` FROM complaints
WHERE id = $1`

func (q *Queries) GetComplaintByID(ctx context.Context, id uuid.UUID) (Complaint, error) {
	row := q.db.QueryRowContext(ctx, getComplaintByID, id)
	var i Complaint
	err := row.Scan(complaintFields(&i)...)
	return i, err
}

// Serializes lifecycle transitions on one complaint for the rest of the
// enclosing transaction.
const getComplaintByIDForUpdate = `-- name: GetComplaintByIDForUpdate :one
SELECT ` + complaintColumns + ` FROM complaints
WHERE id = $1
FOR UPDATE`

func (q *Queries) GetComplaintByIDForUpdate(ctx context.Context, id uuid.UUID) (Complaint, error) {
	row := q.db.QueryRowContext(ctx, getComplaintByIDForUpdate, id)
	var i Complaint
	err := row.Scan(complaintFields(&i)...)
	return i, err
}

const updateComplaintState = `-- name: UpdateComplaintState :one
UPDATE complaints
SET assigned_to = $2,
    status = $3,
    priority = $4,
    admin_comment = $5,
    materials_used = $6,
    resolution_proof_url = $7,
    resolved_latitude = $8,
    resolved_longitude = $9,
    citizen_rating = $10,
    citizen_feedback = $11,
    assigned_at = $12,
    updated_at = $13
WHERE id = $1
RETURNING ` + complaintColumns

type UpdateComplaintStateParams struct {
	ID                 uuid.UUID       `json:"id"`
	AssignedTo         uuid.NullUUID   `json:"assigned_to"`
	Status             string          `json:"status"`
	Priority           string          `json:"priority"`
	AdminComment       sql.NullString  `json:"admin_comment"`
	MaterialsUsed      sql.NullString  `json:"materials_used"`
	ResolutionProofUrl sql.NullString  `json:"resolution_proof_url"`
	ResolvedLatitude   sql.NullFloat64 `json:"resolved_latitude"`
	ResolvedLongitude  sql.NullFloat64 `json:"resolved_longitude"`
	CitizenRating      sql.NullInt32   `json:"citizen_rating"`
	CitizenFeedback    sql.NullString  `json:"citizen_feedback"`
	AssignedAt         sql.NullTime    `json:"assigned_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (q *Queries) UpdateComplaintState(ctx context.Context, arg UpdateComplaintStateParams) (Complaint, error) {
	row := q.db.QueryRowContext(ctx, updateComplaintState,
		arg.ID,
		arg.AssignedTo,
		arg.Status,
		arg.Priority,
		arg.AdminComment,
		arg.MaterialsUsed,
		arg.ResolutionProofUrl,
		arg.ResolvedLatitude,
		arg.ResolvedLongitude,
		arg.CitizenRating,
		arg.CitizenFeedback,
		arg.AssignedAt,
		arg.UpdatedAt,
	)
	var i Complaint
	err := row.Scan(complaintFields(&i)...)
	return i, err
}

const listComplaints = `-- name: ListComplaints :many
SELECT c.id, c.user_id, c.category_id, c.assigned_to, c.title, c.description, c.image_url, c.location,
    c.latitude, c.longitude, c.status, c.priority, c.admin_comment, c.materials_used, c.resolution_proof_url,
    c.resolved_latitude, c.resolved_longitude, c.citizen_rating, c.citizen_feedback, c.assigned_at,
    c.created_at, c.updated_at,
    cat.name AS category_name,
    reporter.name AS reporter_name,
    officer.name AS assignee_name
FROM complaints c
JOIN complaint_categories cat ON cat.id = c.category_id
JOIN users reporter ON reporter.id = c.user_id
LEFT JOIN users officer ON officer.id = c.assigned_to
WHERE ($1::uuid IS NULL OR c.user_id = $1)
  AND ($2::uuid IS NULL OR c.assigned_to = $2)
  AND (cardinality($3::text[]) = 0 OR c.status = ANY($3::text[]))
ORDER BY c.created_at DESC, c.id`

type ListComplaintsParams struct {
	ReporterID uuid.NullUUID `json:"reporter_id"`
	AssigneeID uuid.NullUUID `json:"assignee_id"`
	Statuses   []string      `json:"statuses"`
}

type ListComplaintsRow struct {
	Complaint
	CategoryName string         `json:"category_name"`
	ReporterName string         `json:"reporter_name"`
	AssigneeName sql.NullString `json:"assignee_name"`
}

func (q *Queries) ListComplaints(ctx context.Context, arg ListComplaintsParams) ([]ListComplaintsRow, error) {
	statuses := arg.Statuses
	if statuses == nil {
		statuses = []string{}
	}
	rows, err := q.db.QueryContext(ctx, listComplaints, arg.ReporterID, arg.AssigneeID, pq.Array(statuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListComplaintsRow
	for rows.Next() {
		var i ListComplaintsRow
		dest := append(complaintFields(&i.Complaint), &i.CategoryName, &i.ReporterName, &i.AssigneeName)
		if err := rows.Scan(dest...); err != nil {
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

const countComplaintsByStatus = `-- name: CountComplaintsByStatus :many
SELECT status, COUNT(*) AS count FROM complaints
GROUP BY status`

type CountComplaintsByStatusRow struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (q *Queries) CountComplaintsByStatus(ctx context.Context) ([]CountComplaintsByStatusRow, error) {
	rows, err := q.db.QueryContext(ctx, countComplaintsByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountComplaintsByStatusRow
	for rows.Next() {
		var i CountComplaintsByStatusRow
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
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
