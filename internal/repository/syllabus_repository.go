package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const syllabusColumns = "id, class_id, subject_id, teacher_id, hours_per_week, created_at, updated_at"

// SyllabusRepository persists per-class (subject, teacher, hours) obligations.
type SyllabusRepository struct {
	db *sqlx.DB
}

// NewSyllabusRepository constructs the repository.
func NewSyllabusRepository(db *sqlx.DB) *SyllabusRepository {
	return &SyllabusRepository{db: db}
}

// List returns syllabus entries matching the filter.
func (r *SyllabusRepository) List(ctx context.Context, filter models.ObligationFilter) ([]models.SyllabusEntry, int, error) {
	where := obligationWhere(filter)
	base := where.clause("FROM syllabus WHERE 1=1")

	allowedSorts := map[string]bool{"created_at": true, "hours_per_week": true}
	query := fmt.Sprintf("SELECT %s %s %s", syllabusColumns, base, pageClause(filter.ListQuery, allowedSorts, "created_at"))
	var entries []models.SyllabusEntry
	if err := r.db.SelectContext(ctx, &entries, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list syllabus: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count syllabus: %w", err)
	}
	return entries, total, nil
}

// ListByClass returns the class's obligations in insertion order, which is the engine's priority order.
func (r *SyllabusRepository) ListByClass(ctx context.Context, classID string) ([]models.SyllabusEntry, error) {
	var entries []models.SyllabusEntry
	if err := r.db.SelectContext(ctx, &entries, "SELECT "+syllabusColumns+" FROM syllabus WHERE class_id = $1 ORDER BY created_at ASC, id ASC", classID); err != nil {
		return nil, fmt.Errorf("list syllabus by class: %w", err)
	}
	return entries, nil
}

// FindByID returns a syllabus entry.
func (r *SyllabusRepository) FindByID(ctx context.Context, id string) (*models.SyllabusEntry, error) {
	var entry models.SyllabusEntry
	if err := r.db.GetContext(ctx, &entry, "SELECT "+syllabusColumns+" FROM syllabus WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create inserts an entry.
func (r *SyllabusRepository) Create(ctx context.Context, entry *models.SyllabusEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	const query = `INSERT INTO syllabus (id, class_id, subject_id, teacher_id, hours_per_week, created_at, updated_at) VALUES (:id, :class_id, :subject_id, :teacher_id, :hours_per_week, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create syllabus entry: %w", err)
	}
	return nil
}

// Update modifies an entry.
func (r *SyllabusRepository) Update(ctx context.Context, entry *models.SyllabusEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE syllabus SET class_id = :class_id, subject_id = :subject_id, teacher_id = :teacher_id, hours_per_week = :hours_per_week, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("update syllabus entry: %w", err)
	}
	return nil
}

// Delete removes an entry.
func (r *SyllabusRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM syllabus WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete syllabus entry: %w", err)
	}
	return nil
}

func obligationWhere(filter models.ObligationFilter) whereBuilder {
	var where whereBuilder
	if filter.ClassID != "" {
		where.add("class_id = $%d", filter.ClassID)
	}
	if filter.SubjectID != "" {
		where.add("subject_id = $%d", filter.SubjectID)
	}
	if filter.TeacherID != "" {
		where.add("teacher_id = $%d", filter.TeacherID)
	}
	return where
}
