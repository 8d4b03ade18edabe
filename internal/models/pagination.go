package models

// Pagination describes paging metadata returned with list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// ListQuery carries paging and sorting shared by reference list endpoints.
type ListQuery struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Normalize clamps paging values to the supported range.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	return q
}

// Offset returns the row offset for the current page.
func (q ListQuery) Offset() int {
	n := q.Normalize()
	return (n.Page - 1) * n.PageSize
}
