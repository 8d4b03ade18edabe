package models

import "time"

// SyllabusEntry links a class, subject and teacher with a weekly hour count.
type SyllabusEntry struct {
	ID           string    `db:"id" json:"id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	HoursPerWeek int       `db:"hours_per_week" json:"hours_per_week"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectTeacher is the fallback mapping of who teaches what in a class when no syllabus exists.
type SubjectTeacher struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ObligationFilter narrows syllabus and subject-teacher listings.
type ObligationFilter struct {
	ListQuery
	ClassID   string
	SubjectID string
	TeacherID string
}
