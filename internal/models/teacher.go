package models

import (
	"time"

	"github.com/lib/pq"
)

// Teacher represents an instructor with the subjects they teach, the classes they supervise and preferred rooms.
type Teacher struct {
	ID        string         `db:"id" json:"id"`
	FullName  string         `db:"full_name" json:"full_name"`
	Subjects  pq.StringArray `db:"subjects" json:"subjects"`
	ClassIDs  pq.StringArray `db:"class_ids" json:"class_ids"`
	RoomIDs   pq.StringArray `db:"room_ids" json:"room_ids"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Teaches reports whether the teacher may teach the named subject.
func (t Teacher) Teaches(subjectName string) bool {
	for _, s := range t.Subjects {
		if s == subjectName {
			return true
		}
	}
	return false
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	ListQuery
	Subject string
	ClassID string
}
