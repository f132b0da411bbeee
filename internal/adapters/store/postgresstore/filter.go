package postgresstore

import (
	"strings"

	"gorm.io/gorm"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

const (
	tagEquals = `exists (select 1 from unnest(tags) as t(tag) where lower(t.tag) = lower(?))`
	searchAny = `(text ilike ? escape '\' or author ilike ? escape '\' or source ilike ? escape '\' ` +
		`or exists (select 1 from unnest(tags) as t(tag) where t.tag ilike ? escape '\'))`
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// filterScope turns a domain filter into a where clause.
func filterScope(filter domain.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch filter.Kind {
		case domain.FilterFavorites:
			return db.Where("favorite = ?", true)
		case domain.FilterTag:
			return db.Where(tagEquals, strings.TrimSpace(filter.Term))
		case domain.FilterSearch:
			pattern := containsPattern(filter.Term)
			return db.Where(searchAny, pattern, pattern, pattern, pattern)
		default:
			return db
		}
	}
}

// containsPattern matches term literally anywhere in a column.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
}
