package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const periodColumns = "id, name, start_date, end_date, is_active, created_at, updated_at"

// AcademicPeriodRepository persists academic periods.
type AcademicPeriodRepository struct {
	db *sqlx.DB
}

// NewAcademicPeriodRepository constructs the repository.
func NewAcademicPeriodRepository(db *sqlx.DB) *AcademicPeriodRepository {
	return &AcademicPeriodRepository{db: db}
}

func (r *AcademicPeriodRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns all periods, newest first.
func (r *AcademicPeriodRepository) List(ctx context.Context) ([]models.AcademicPeriod, error) {
	var periods []models.AcademicPeriod
	if err := r.db.SelectContext(ctx, &periods, "SELECT "+periodColumns+" FROM academic_periods ORDER BY start_date DESC"); err != nil {
		return nil, fmt.Errorf("list academic periods: %w", err)
	}
	return periods, nil
}

// FindByID returns a period.
func (r *AcademicPeriodRepository) FindByID(ctx context.Context, id string) (*models.AcademicPeriod, error) {
	var period models.AcademicPeriod
	if err := r.db.GetContext(ctx, &period, "SELECT "+periodColumns+" FROM academic_periods WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &period, nil
}

// FindActive returns the current academic period.
func (r *AcademicPeriodRepository) FindActive(ctx context.Context) (*models.AcademicPeriod, error) {
	var period models.AcademicPeriod
	if err := r.db.GetContext(ctx, &period, "SELECT "+periodColumns+" FROM academic_periods WHERE is_active = TRUE LIMIT 1"); err != nil {
		return nil, err
	}
	return &period, nil
}

// DeactivateAll clears the active flag so another period can take it.
func (r *AcademicPeriodRepository) DeactivateAll(ctx context.Context, exec sqlx.ExtContext, exceptID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `UPDATE academic_periods SET is_active = FALSE, updated_at = $2 WHERE is_active = TRUE AND id <> $1`, exceptID, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate academic periods: %w", err)
	}
	return nil
}

// Create inserts a period.
func (r *AcademicPeriodRepository) Create(ctx context.Context, exec sqlx.ExtContext, period *models.AcademicPeriod) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if period.CreatedAt.IsZero() {
		period.CreatedAt = now
	}
	period.UpdatedAt = now
	const query = `INSERT INTO academic_periods (id, name, start_date, end_date, is_active, created_at, updated_at) VALUES (:id, :name, :start_date, :end_date, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, period); err != nil {
		return fmt.Errorf("create academic period: %w", err)
	}
	return nil
}

// Update modifies a period.
func (r *AcademicPeriodRepository) Update(ctx context.Context, exec sqlx.ExtContext, period *models.AcademicPeriod) error {
	period.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_periods SET name = :name, start_date = :start_date, end_date = :end_date, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, period); err != nil {
		return fmt.Errorf("update academic period: %w", err)
	}
	return nil
}

// Delete removes a period and, by cascade, its time slots.
func (r *AcademicPeriodRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM academic_periods WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete academic period: %w", err)
	}
	return nil
}
