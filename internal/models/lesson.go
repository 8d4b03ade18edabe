package models

import "time"

// Lesson is an ordinal period of the school day, e.g. lesson 1 from 09:00 to 09:45.
type Lesson struct {
	ID           string    `db:"id" json:"id"`
	LessonNumber int       `db:"lesson_number" json:"lesson_number"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
