package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const timeSlotColumns = "id, academic_period_id, class_id, day, lesson_id, subject_id, teacher_id, room_id, subgroup, created_at, updated_at"

const timeSlotDetailSelect = `SELECT ts.id, ts.academic_period_id, ts.class_id, ts.day, ts.lesson_id, ts.subject_id, ts.teacher_id, ts.room_id, ts.subgroup, ts.created_at, ts.updated_at,
c.name AS class_name, l.lesson_number, l.start_time, l.end_time, s.name AS subject_name, t.full_name AS teacher_name, r.number AS room_number
FROM time_slots ts
JOIN classes c ON c.id = ts.class_id
JOIN lessons l ON l.id = ts.lesson_id
JOIN subjects s ON s.id = ts.subject_id
JOIN teachers t ON t.id = ts.teacher_id
JOIN rooms r ON r.id = ts.room_id
WHERE 1=1`

// referenceColumns lists the time_slots columns that point at reference tables.
var referenceColumns = map[string]bool{
	"class_id":   true,
	"lesson_id":  true,
	"subject_id": true,
	"teacher_id": true,
	"room_id":    true,
}

// TimeSlotRepository stores the materialised weekly schedule.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository constructs the repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

func (r *TimeSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func timeSlotWhere(filter models.TimeSlotFilter, prefix string) whereBuilder {
	var where whereBuilder
	if filter.AcademicPeriodID != "" {
		where.add(prefix+"academic_period_id = $%d", filter.AcademicPeriodID)
	}
	if filter.ClassID != "" {
		where.add(prefix+"class_id = $%d", filter.ClassID)
	}
	if filter.TeacherID != "" {
		where.add(prefix+"teacher_id = $%d", filter.TeacherID)
	}
	if filter.RoomID != "" {
		where.add(prefix+"room_id = $%d", filter.RoomID)
	}
	if filter.Day != "" {
		where.add(prefix+"day = $%d", string(filter.Day))
	}
	if filter.LessonID != "" {
		where.add(prefix+"lesson_id = $%d", filter.LessonID)
	}
	return where
}

// List returns raw rows matching the filter.
func (r *TimeSlotRepository) List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, error) {
	where := timeSlotWhere(filter, "")
	query := where.clause("SELECT "+timeSlotColumns+" FROM time_slots WHERE 1=1") + " ORDER BY class_id, day, lesson_id, subgroup NULLS FIRST"
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, where.args...); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// ListDetailed returns rows joined with display labels, ordered for grid rendering.
func (r *TimeSlotRepository) ListDetailed(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlotDetail, error) {
	where := timeSlotWhere(filter, "ts.")
	query := where.clause(timeSlotDetailSelect) + " ORDER BY c.name, ts.day, l.lesson_number, ts.subgroup NULLS FIRST"
	var details []models.TimeSlotDetail
	if err := r.db.SelectContext(ctx, &details, query, where.args...); err != nil {
		return nil, fmt.Errorf("list time slot details: %w", err)
	}
	return details, nil
}

// ListOtherClasses returns the period's rows that belong to classes other than the excluded ones.
func (r *TimeSlotRepository) ListOtherClasses(ctx context.Context, periodID string, excludeClassIDs []string) ([]models.TimeSlot, error) {
	query := "SELECT " + timeSlotColumns + " FROM time_slots WHERE academic_period_id = ?"
	args := []interface{}{periodID}
	if len(excludeClassIDs) > 0 {
		query += " AND class_id NOT IN (?)"
		args = append(args, excludeClassIDs)
	}
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("build other classes query: %w", err)
	}
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list time slots of other classes: %w", err)
	}
	return slots, nil
}

// FindByID returns a single row.
func (r *TimeSlotRepository) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, "SELECT "+timeSlotColumns+" FROM time_slots WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// LockScope serialises writers of one (class, period) scope until the transaction ends.
func (r *TimeSlotRepository) LockScope(ctx context.Context, exec sqlx.ExtContext, classID, periodID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "time_slots:"+periodID+":"+classID); err != nil {
		return fmt.Errorf("lock time slot scope: %w", err)
	}
	return nil
}

// ReplaceScope deletes every row of (class, period) and inserts slots in their place.
// exec should be a transaction so a failed insert keeps the previous rows.
func (r *TimeSlotRepository) ReplaceScope(ctx context.Context, exec sqlx.ExtContext, classID, periodID string, slots []models.TimeSlot) error {
	if err := r.LockScope(ctx, exec, classID, periodID); err != nil {
		return err
	}
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM time_slots WHERE class_id = $1 AND academic_period_id = $2`, classID, periodID); err != nil {
		return fmt.Errorf("clear time slot scope: %w", err)
	}
	return r.InsertBatch(ctx, exec, slots)
}

// ReplaceCell swaps the rows of one class cell.
func (r *TimeSlotRepository) ReplaceCell(ctx context.Context, exec sqlx.ExtContext, periodID, classID string, day models.Weekday, lessonID string, slots []models.TimeSlot) error {
	if err := r.LockScope(ctx, exec, classID, periodID); err != nil {
		return err
	}
	if err := r.DeleteCell(ctx, exec, periodID, classID, day, lessonID); err != nil {
		return err
	}
	return r.InsertBatch(ctx, exec, slots)
}

// DeleteCell removes the rows of one class cell.
func (r *TimeSlotRepository) DeleteCell(ctx context.Context, exec sqlx.ExtContext, periodID, classID string, day models.Weekday, lessonID string) error {
	const query = `DELETE FROM time_slots WHERE academic_period_id = $1 AND class_id = $2 AND day = $3 AND lesson_id = $4`
	if _, err := r.exec(exec).ExecContext(ctx, query, periodID, classID, string(day), lessonID); err != nil {
		return fmt.Errorf("clear time slot cell: %w", err)
	}
	return nil
}

// InsertBatch inserts rows, assigning ids and timestamps.
func (r *TimeSlotRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimeSlot) error {
	if len(slots) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `INSERT INTO time_slots (id, academic_period_id, class_id, day, lesson_id, subject_id, teacher_id, room_id, subgroup, created_at, updated_at)
VALUES (:id, :academic_period_id, :class_id, :day, :lesson_id, :subject_id, :teacher_id, :room_id, :subgroup, :created_at, :updated_at)`

	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		slot.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, slot); err != nil {
			return fmt.Errorf("insert time slot: %w", err)
		}
	}
	return nil
}

// Update overwrites a single row.
func (r *TimeSlotRepository) Update(ctx context.Context, slot *models.TimeSlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE time_slots SET day = :day, lesson_id = :lesson_id, subject_id = :subject_id, teacher_id = :teacher_id, room_id = :room_id, subgroup = :subgroup, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("update time slot: %w", err)
	}
	return nil
}

// DeleteByFilter removes rows matching a (class, period) scope and returns the count.
func (r *TimeSlotRepository) DeleteByFilter(ctx context.Context, filter models.TimeSlotFilter) (int64, error) {
	where := timeSlotWhere(filter, "")
	if len(where.args) == 0 {
		return 0, fmt.Errorf("delete time slots: empty filter")
	}
	res, err := r.db.ExecContext(ctx, where.clause("DELETE FROM time_slots WHERE 1=1"), where.args...)
	if err != nil {
		return 0, fmt.Errorf("delete time slots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete time slots affected: %w", err)
	}
	return n, nil
}

// CountByReference counts rows pointing at a reference row through column.
func (r *TimeSlotRepository) CountByReference(ctx context.Context, column, id string) (int, error) {
	if !referenceColumns[column] {
		return 0, fmt.Errorf("count time slots: unsupported column %q", column)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM time_slots WHERE %s = $1", column), id); err != nil {
		return 0, fmt.Errorf("count time slots by %s: %w", column, err)
	}
	return count, nil
}
