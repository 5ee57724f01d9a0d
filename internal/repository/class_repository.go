package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edu-centre-api/internal/models"
)

// ClassRepository reads classes. Class CRUD is owned by the admin service; the scheduler
// only needs ids and default schedules.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// ListSchedules returns every class with its raw default schedule in a stable order.
func (r *ClassRepository) ListSchedules(ctx context.Context) ([]models.Class, error) {
	const query = `SELECT id, default_schedule FROM classes ORDER BY created_at ASC, id ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list class schedules: %w", err)
	}
	return classes, nil
}

// FindByID loads a class by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, grade, teacher_id, location_id, default_schedule, created_at, updated_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}
