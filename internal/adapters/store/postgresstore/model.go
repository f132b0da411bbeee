package postgresstore

import (
	"time"

	"github.com/lib/pq"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

// quoteRow maps the quotes table. Timestamps are managed by the store, not gorm.
type quoteRow struct {
	ID        string         `gorm:"primaryKey;type:uuid"`
	Text      string         `gorm:"type:text;not null"`
	Author    string         `gorm:"type:text;not null"`
	Source    string         `gorm:"type:text;not null;default:''"`
	Tags      pq.StringArray `gorm:"type:text[];not null;default:'{}'"`
	Favorite  bool           `gorm:"not null;default:false"`
	CreatedAt time.Time      `gorm:"type:timestamptz;not null;autoCreateTime:false"`
	UpdatedAt time.Time      `gorm:"type:timestamptz;not null;autoUpdateTime:false"`
}

// TableName implements gorm's tabler.
func (quoteRow) TableName() string {
	return "quotes"
}

func rowFromDomain(q *domain.Quote) quoteRow {
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}

	return quoteRow{
		ID:        q.ID,
		Text:      q.Text,
		Author:    q.Author,
		Source:    q.Source,
		Tags:      pq.StringArray(tags),
		Favorite:  q.Favorite,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

func (r *quoteRow) toDomain() domain.Quote {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}

	return domain.Quote{
		ID:        r.ID,
		Text:      r.Text,
		Author:    r.Author,
		Source:    r.Source,
		Tags:      tags,
		Favorite:  r.Favorite,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}
