package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const teacherColumns = "id, full_name, subjects, class_ids, room_ids, created_at, updated_at"

// TeacherRepository provides data access for teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new repository instance.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers using filters and pagination.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	var where whereBuilder
	if filter.Subject != "" {
		where.add("$%d = ANY(subjects)", filter.Subject)
	}
	if filter.ClassID != "" {
		where.add("$%d = ANY(class_ids)", filter.ClassID)
	}
	if filter.Search != "" {
		where.add("LOWER(full_name) LIKE $%d", "%"+strings.ToLower(filter.Search)+"%")
	}
	base := where.clause("FROM teachers WHERE 1=1")

	allowedSorts := map[string]bool{"full_name": true, "created_at": true, "updated_at": true}
	query := fmt.Sprintf("SELECT %s %s %s", teacherColumns, base, pageClause(filter.ListQuery, allowedSorts, "full_name"))
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// ListAll returns every teacher ordered by name.
func (r *TeacherRepository) ListAll(ctx context.Context) ([]models.Teacher, error) {
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, "SELECT "+teacherColumns+" FROM teachers ORDER BY full_name ASC"); err != nil {
		return nil, fmt.Errorf("list all teachers: %w", err)
	}
	return teachers, nil
}

// FindByID returns a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, "SELECT "+teacherColumns+" FROM teachers WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Create inserts a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now
	normalizeTeacherArrays(teacher)

	const query = `INSERT INTO teachers (id, full_name, subjects, class_ids, room_ids, created_at, updated_at) VALUES (:id, :full_name, :subjects, :class_ids, :room_ids, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies teacher data.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	normalizeTeacherArrays(teacher)
	const query = `UPDATE teachers SET full_name = :full_name, subjects = :subjects, class_ids = :class_ids, room_ids = :room_ids, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// Delete removes a teacher.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return nil
}

// text[] columns are NOT NULL; nil slices would be sent as NULL.
func normalizeTeacherArrays(t *models.Teacher) {
	if t.Subjects == nil {
		t.Subjects = []string{}
	}
	if t.ClassIDs == nil {
		t.ClassIDs = []string{}
	}
	if t.RoomIDs == nil {
		t.RoomIDs = []string{}
	}
}
