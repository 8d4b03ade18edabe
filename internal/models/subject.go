package models

import "time"

// Subject represents a taught subject. Subgroup subjects are taught to two halves of a class in parallel.
type Subject struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	IsSubgroup bool      `db:"is_subgroup" json:"is_subgroup"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	ListQuery
	IsSubgroup *bool
}
