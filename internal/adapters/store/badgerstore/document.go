package badgerstore

import (
	"time"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

// document is the JSON shape persisted under quote:<id>.
type document struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Source    string    `json:"source,omitempty"`
	Tags      []string  `json:"tags"`
	Favorite  bool      `json:"favorite"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func fromDomain(q *domain.Quote) document {
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}

	return document{
		ID:        q.ID,
		Text:      q.Text,
		Author:    q.Author,
		Source:    q.Source,
		Tags:      tags,
		Favorite:  q.Favorite,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

func (d document) toDomain() domain.Quote {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}

	return domain.Quote{
		ID:        d.ID,
		Text:      d.Text,
		Author:    d.Author,
		Source:    d.Source,
		Tags:      tags,
		Favorite:  d.Favorite,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
