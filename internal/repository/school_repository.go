package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edupulse/wellness-api/internal/models"
)

// SchoolRepository reads the schools monitoring runs iterate over.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs a SchoolRepository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// ListActive returns all active schools ordered by name.
func (r *SchoolRepository) ListActive(ctx context.Context) ([]models.School, error) {
	const query = `SELECT id, name, timezone, active, created_at FROM schools WHERE active = TRUE ORDER BY name ASC`
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query); err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	return schools, nil
}

// FindByID fetches one school.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	const query = `SELECT id, name, timezone, active, created_at FROM schools WHERE id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}
