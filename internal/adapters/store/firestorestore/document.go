package firestorestore

import (
	"strings"
	"time"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

// quoteDoc is the stored document. The document ID is the quote ID.
// TagKeys mirrors Tags lower-cased so tag lookups can use array-contains.
type quoteDoc struct {
	Text      string    `firestore:"text"`
	Author    string    `firestore:"author"`
	Source    string    `firestore:"source"`
	Tags      []string  `firestore:"tags"`
	TagKeys   []string  `firestore:"tagKeys"`
	Favorite  bool      `firestore:"favorite"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func docFromDomain(q *domain.Quote) quoteDoc {
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}

	keys := make([]string, len(tags))
	for i, tag := range tags {
		keys[i] = strings.ToLower(tag)
	}

	return quoteDoc{
		Text:      q.Text,
		Author:    q.Author,
		Source:    q.Source,
		Tags:      tags,
		TagKeys:   keys,
		Favorite:  q.Favorite,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

func (d *quoteDoc) toDomain(id string) domain.Quote {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}

	return domain.Quote{
		ID:        id,
		Text:      d.Text,
		Author:    d.Author,
		Source:    d.Source,
		Tags:      tags,
		Favorite:  d.Favorite,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}
