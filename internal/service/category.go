package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/repository"
)

// CategoryService is the read-only complaint category directory.
type CategoryService interface {
	// FindByID returns domain.ENOTFOUND if the category does not exist.
	FindByID(ctx context.Context, id int32) (*domain.Category, error)

	// List returns every category ordered by name.
	List(ctx context.Context) ([]domain.Category, error)
}

type categoryService struct {
	queries repository.Querier
	logger  *slog.Logger
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(queries repository.Querier, logger *slog.Logger) CategoryService {
	return &categoryService{queries: queries, logger: logger}
}

func (s *categoryService) FindByID(ctx context.Context, id int32) (*domain.Category, error) {
	const op = "category.find_by_id"

	row, err := s.queries.GetCategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "Category", strconv.Itoa(int(id)))
		}
		return nil, domain.Internal(err, op, "failed to fetch category")
	}
	return &domain.Category{ID: row.ID, Name: row.Name}, nil
}

func (s *categoryService) List(ctx context.Context) ([]domain.Category, error) {
	const op = "category.list"

	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list categories")
	}

	categories := make([]domain.Category, len(rows))
	for i, row := range rows {
		categories[i] = domain.Category{ID: row.ID, Name: row.Name}
	}
	return categories, nil
}
