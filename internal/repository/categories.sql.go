package repository

import (
	"context"
)

const getCategoryByID = `-- name: GetCategoryByID :one
SELECT id, name, created_at FROM complaint_categories
WHERE id = $1`

func (q *Queries) GetCategoryByID(ctx context.Context, id int32) (ComplaintCategory, error) {
	row := q.db.QueryRowContext(ctx, getCategoryByID, id)
	var i ComplaintCategory
	err := row.Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const listCategories = `-- name: ListCategories :many
SELECT id, name, created_at FROM complaint_categories
ORDER BY name`

func (q *Queries) ListCategories(ctx context.Context) ([]ComplaintCategory, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ComplaintCategory
	for rows.Next() {
		var i ComplaintCategory
		if err := rows.Scan(&i.ID, &i.Name, &i.CreatedAt); err != nil {
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
