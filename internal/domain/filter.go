package domain

import (
	"strings"
)

// FilterKind selects the predicate a quote query applies.
type FilterKind int

const (
	// FilterAll matches every quote.
	FilterAll FilterKind = iota
	// FilterFavorites matches quotes marked as favorite.
	FilterFavorites
	// FilterTag matches quotes carrying a tag, compared case-insensitively.
	FilterTag
	// FilterSearch matches quotes whose text, author, source or any tag contains the term.
	FilterSearch
)

// String returns the kind name used in logs and metrics.
func (k FilterKind) String() string {
	switch k {
	case FilterAll:
		return "all"
	case FilterFavorites:
		return "favorites"
	case FilterTag:
		return "tag"
	case FilterSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Filter describes which quotes a list or search query returns.
type Filter struct {
	Kind FilterKind
	Term string
}

// AllQuotes returns a filter without predicate.
func AllQuotes() Filter {
	return Filter{Kind: FilterAll}
}

// FavoritesOnly returns a filter for favorite quotes.
func FavoritesOnly() Filter {
	return Filter{Kind: FilterFavorites}
}

// ByTag returns a filter for quotes tagged with tag.
func ByTag(tag string) Filter {
	return Filter{Kind: FilterTag, Term: strings.TrimSpace(tag)}
}

// Search returns a free-text filter for term.
func Search(term string) Filter {
	return Filter{Kind: FilterSearch, Term: strings.TrimSpace(term)}
}

// Validate rejects filters that need a term but have none.
func (f Filter) Validate() error {
	switch f.Kind {
	case FilterAll, FilterFavorites:
		return nil
	case FilterTag:
		if strings.TrimSpace(f.Term) == "" {
			return NewValidationError("tag", "must not be empty")
		}
	case FilterSearch:
		if strings.TrimSpace(f.Term) == "" {
			return NewValidationError("q", "search term is required")
		}
	default:
		return NewValidationErrorWithValue("filter", "unknown filter kind", int(f.Kind))
	}

	return nil
}

// Matches reports whether q satisfies the filter.
// Stores that cannot express a predicate natively fall back to this.
func (f Filter) Matches(q *Quote) bool {
	switch f.Kind {
	case FilterAll:
		return true
	case FilterFavorites:
		return q.Favorite
	case FilterTag:
		term := strings.TrimSpace(f.Term)
		for _, tag := range q.Tags {
			if strings.EqualFold(tag, term) {
				return true
			}
		}

		return false
	case FilterSearch:
		return searchMatches(q, strings.ToLower(strings.TrimSpace(f.Term)))
	default:
		return false
	}
}

func searchMatches(q *Quote, needle string) bool {
	if needle == "" {
		return false
	}

	if containsFold(q.Text, needle) || containsFold(q.Author, needle) || containsFold(q.Source, needle) {
		return true
	}

	for _, tag := range q.Tags {
		if containsFold(tag, needle) {
			return true
		}
	}

	return false
}

// containsFold expects needle to be lower-cased already.
func containsFold(s, needle string) bool {
	return strings.Contains(strings.ToLower(s), needle)
}
