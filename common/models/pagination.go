package models

const (
	DefaultPaginationLimit = 30
	MaxPaginationLimit     = 100
)

type Pagination struct {
	// Limit is the maximum number of results to return.
	Limit int `json:"limit"`
	// Cursor is an opaque value used to retrieve the next set of results.
	Cursor *DirectionalCursor `json:"cursor"`
}

// NewPagination clamps limit into [1, MaxPaginationLimit], using the default when unset.
func NewPagination(limit int, cursor *DirectionalCursor) Pagination {
	if limit <= 0 {
		limit = DefaultPaginationLimit
	}
	if limit > MaxPaginationLimit {
		limit = MaxPaginationLimit
	}
	return Pagination{
		Limit:  limit,
		Cursor: cursor,
	}
}
