package models

import "time"

// TimeSlot is one concrete (class, day, lesson[, subgroup]) assignment of subject, teacher and room.
type TimeSlot struct {
	ID               string    `db:"id" json:"id"`
	AcademicPeriodID string    `db:"academic_period_id" json:"academic_period_id"`
	ClassID          string    `db:"class_id" json:"class_id"`
	Day              Weekday   `db:"day" json:"day"`
	LessonID         string    `db:"lesson_id" json:"lesson_id"`
	SubjectID        string    `db:"subject_id" json:"subject_id"`
	TeacherID        string    `db:"teacher_id" json:"teacher_id"`
	RoomID           string    `db:"room_id" json:"room_id"`
	Subgroup         *int      `db:"subgroup" json:"subgroup,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// TimeSlotFilter describes supported filters for listing and deleting time slots.
type TimeSlotFilter struct {
	AcademicPeriodID string
	ClassID          string
	TeacherID        string
	RoomID           string
	Day              Weekday
	LessonID         string
}

// TimeSlotDetail joins a time slot with human readable labels for display and export.
type TimeSlotDetail struct {
	TimeSlot
	ClassName    string `db:"class_name" json:"class_name"`
	LessonNumber int    `db:"lesson_number" json:"lesson_number"`
	StartTime    string `db:"start_time" json:"start_time"`
	EndTime      string `db:"end_time" json:"end_time"`
	SubjectName  string `db:"subject_name" json:"subject_name"`
	TeacherName  string `db:"teacher_name" json:"teacher_name"`
	RoomNumber   string `db:"room_number" json:"room_number"`
}

// ScheduleConflict describes a stored or proposed row that collides with another.
type ScheduleConflict struct {
	TimeSlotID string  `json:"time_slot_id,omitempty"`
	ClassID    string  `json:"class_id"`
	Day        Weekday `json:"day"`
	LessonID   string  `json:"lesson_id"`
	TeacherID  string  `json:"teacher_id,omitempty"`
	RoomID     string  `json:"room_id,omitempty"`
	Dimension  string  `json:"dimension"`
}

// Conflict dimensions.
const (
	ConflictTeacher = "TEACHER"
	ConflictRoom    = "ROOM"
	ConflictClass   = "CLASS"
)

// ScheduleConflictError is returned when rows collide on teacher, room or class cell.
type ScheduleConflictError struct {
	Message string             `json:"message"`
	Errors  []ScheduleConflict `json:"errors,omitempty"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
