package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const subjectTeacherColumns = "id, class_id, subject_id, teacher_id, created_at"

// SubjectTeacherRepository persists the fallback (class, subject, teacher) mapping.
type SubjectTeacherRepository struct {
	db *sqlx.DB
}

// NewSubjectTeacherRepository constructs the repository.
func NewSubjectTeacherRepository(db *sqlx.DB) *SubjectTeacherRepository {
	return &SubjectTeacherRepository{db: db}
}

// List returns mappings matching the filter.
func (r *SubjectTeacherRepository) List(ctx context.Context, filter models.ObligationFilter) ([]models.SubjectTeacher, int, error) {
	where := obligationWhere(filter)
	base := where.clause("FROM subject_teachers WHERE 1=1")

	allowedSorts := map[string]bool{"created_at": true}
	query := fmt.Sprintf("SELECT %s %s %s", subjectTeacherColumns, base, pageClause(filter.ListQuery, allowedSorts, "created_at"))
	var rows []models.SubjectTeacher
	if err := r.db.SelectContext(ctx, &rows, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list subject teachers: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count subject teachers: %w", err)
	}
	return rows, total, nil
}

// ListByClass returns the class's mappings in insertion order.
func (r *SubjectTeacherRepository) ListByClass(ctx context.Context, classID string) ([]models.SubjectTeacher, error) {
	var rows []models.SubjectTeacher
	if err := r.db.SelectContext(ctx, &rows, "SELECT "+subjectTeacherColumns+" FROM subject_teachers WHERE class_id = $1 ORDER BY created_at ASC, id ASC", classID); err != nil {
		return nil, fmt.Errorf("list subject teachers by class: %w", err)
	}
	return rows, nil
}

// FindByID returns one mapping.
func (r *SubjectTeacherRepository) FindByID(ctx context.Context, id string) (*models.SubjectTeacher, error) {
	var row models.SubjectTeacher
	if err := r.db.GetContext(ctx, &row, "SELECT "+subjectTeacherColumns+" FROM subject_teachers WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &row, nil
}

// Create inserts a mapping.
func (r *SubjectTeacherRepository) Create(ctx context.Context, row *models.SubjectTeacher) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO subject_teachers (id, class_id, subject_id, teacher_id, created_at) VALUES (:id, :class_id, :subject_id, :teacher_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create subject teacher: %w", err)
	}
	return nil
}

// Update modifies a mapping.
func (r *SubjectTeacherRepository) Update(ctx context.Context, row *models.SubjectTeacher) error {
	const query = `UPDATE subject_teachers SET class_id = :class_id, subject_id = :subject_id, teacher_id = :teacher_id WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("update subject teacher: %w", err)
	}
	return nil
}

// Delete removes a mapping.
func (r *SubjectTeacherRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subject_teachers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete subject teacher: %w", err)
	}
	return nil
}
