package repository

import (
	"fmt"
	"strings"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// whereBuilder accumulates positional conditions for dynamic list queries.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

func (w *whereBuilder) add(format string, value interface{}) {
	w.args = append(w.args, value)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

func (w *whereBuilder) clause(base string) string {
	if len(w.conditions) == 0 {
		return base
	}
	return base + " AND " + strings.Join(w.conditions, " AND ")
}

// pageClause renders ORDER BY, LIMIT and OFFSET, falling back to defaultSort for unknown columns.
func pageClause(q models.ListQuery, allowedSorts map[string]bool, defaultSort string) string {
	sortBy := q.SortBy
	if !allowedSorts[sortBy] {
		sortBy = defaultSort
	}
	order := strings.ToUpper(q.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	n := q.Normalize()
	return fmt.Sprintf("ORDER BY %s %s LIMIT %d OFFSET %d", sortBy, order, n.PageSize, q.Offset())
}
