package dto

import (
	"strconv"
	"strings"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

// PageQuery holds the raw pagination parameters. They are bound as strings so
// that malformed values can fall back to defaults instead of failing binding.
type PageQuery struct {
	Page  string `form:"page"`
	Limit string `form:"limit"`
}

// PageRequest applies ParsePagination to the bound values.
func (q PageQuery) PageRequest() domain.PageRequest {
	return ParsePagination(q.Page, q.Limit)
}

// ParsePagination turns raw page and limit parameters into a page request.
// Anything that is not a base-10 integer of at least 1 becomes the default
// (page 1, limit 10). There is no upper bound on limit.
func ParsePagination(page, limit string) domain.PageRequest {
	return domain.NewPageRequest(parsePositive(page), parsePositive(limit))
}

// parsePositive returns 0 for anything NewPageRequest should replace.
func parsePositive(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0
	}

	return n
}

// PageResponse is the envelope for every list and search endpoint.
type PageResponse[T any] struct {
	Items       []T   `json:"items"`
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
}

// NewPageResponse converts each item of page with convert.
func NewPageResponse[S, T any](page domain.Page[S], convert func(*S) T) PageResponse[T] {
	items := make([]T, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, convert(&page.Items[i]))
	}

	return PageResponse[T]{
		Items:       items,
		CurrentPage: page.CurrentPage,
		TotalPages:  page.TotalPages,
		TotalItems:  page.TotalItems,
	}
}
