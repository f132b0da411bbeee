package domain

import "math"

// Pagination defaults applied when a caller omits or garbles page and limit.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// PageRequest is a 1-indexed page window.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest coerces values below 1 to their defaults.
func NewPageRequest(page, limit int) PageRequest {
	if page < 1 {
		page = DefaultPage
	}

	if limit < 1 {
		limit = DefaultLimit
	}

	return PageRequest{Page: page, Limit: limit}
}

// Offset is the number of matching records skipped before the page starts.
// Saturates instead of overflowing for absurd page numbers.
func (p PageRequest) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}

	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}

	return (p.Page - 1) * p.Limit
}

// Page is the uniform envelope returned by paginated queries.
type Page[T any] struct {
	Items       []T
	CurrentPage int
	TotalPages  int
	TotalItems  int64
}

// NewPage shapes a page for req. CurrentPage echoes the request, even past the last page.
func NewPage[T any](items []T, req PageRequest, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}

	return Page[T]{
		Items:       items,
		CurrentPage: req.Page,
		TotalPages:  TotalPages(total, req.Limit),
		TotalItems:  total,
	}
}

// TotalPages returns ceil(total/limit), or 0 when nothing matched.
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}

	l := int64(limit)

	return int((total + l - 1) / l)
}
