package dto

import (
	"strings"
	"time"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

// MessageQuoteDeleted confirms a successful delete.
const MessageQuoteDeleted = "Quote deleted successfully"

// QuoteResponse is the JSON shape of a stored quote.
type QuoteResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Source    string    `json:"source,omitempty"`
	Tags      []string  `json:"tags"`
	Favorite  bool      `json:"favorite"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewQuoteResponse converts a domain quote. Tags are always an array.
func NewQuoteResponse(q *domain.Quote) QuoteResponse {
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}

	return QuoteResponse{
		ID:        q.ID,
		Text:      q.Text,
		Author:    q.Author,
		Source:    q.Source,
		Tags:      tags,
		Favorite:  q.Favorite,
		CreatedAt: q.CreatedAt.UTC(),
		UpdatedAt: q.UpdatedAt.UTC(),
	}
}

// QuotePageResponse is the list and search envelope.
type QuotePageResponse = PageResponse[QuoteResponse]

// NewQuotePageResponse converts a page of domain quotes.
func NewQuotePageResponse(page domain.Page[domain.Quote]) QuotePageResponse {
	return NewPageResponse(page, NewQuoteResponse)
}

// CreateQuoteRequest is the body of POST /api/quotes. The legacy field names
// quote and book are accepted; text and source win when both are sent.
type CreateQuoteRequest struct {
	Text     string   `json:"text"`
	Quote    string   `json:"quote"`
	Author   string   `json:"author"`
	Source   string   `json:"source"`
	Book     string   `json:"book"`
	Tags     []string `json:"tags"`
	Favorite bool     `json:"favorite"`
}

// ToInput maps the request onto the domain input. Validation happens in the
// service so that every entry point enforces the same rules.
func (r *CreateQuoteRequest) ToInput() domain.QuoteInput {
	return domain.QuoteInput{
		Text:     firstNonBlank(r.Text, r.Quote),
		Author:   r.Author,
		Source:   firstNonBlank(r.Source, r.Book),
		Tags:     r.Tags,
		Favorite: r.Favorite,
	}
}

// UpdateQuoteRequest is the body of PUT /api/quotes/:id. Absent or null
// fields are left unchanged. Aliases follow the same rule as on create.
type UpdateQuoteRequest struct {
	Text     *string   `json:"text"`
	Quote    *string   `json:"quote"`
	Author   *string   `json:"author"`
	Source   *string   `json:"source"`
	Book     *string   `json:"book"`
	Tags     *[]string `json:"tags"`
	Favorite *bool     `json:"favorite"`
}

// ToPatch maps the request onto a domain patch.
func (r *UpdateQuoteRequest) ToPatch() domain.QuotePatch {
	return domain.QuotePatch{
		Text:     firstPresent(r.Text, r.Quote),
		Author:   r.Author,
		Source:   firstPresent(r.Source, r.Book),
		Tags:     r.Tags,
		Favorite: r.Favorite,
	}
}

// DeleteResponse confirms a delete.
type DeleteResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// SearchQuery holds the parameters of GET /api/quotes/search.
type SearchQuery struct {
	PageQuery

	Q string `form:"q" json:"q" validate:"notempty"`
}

func firstNonBlank(canonical, alias string) string {
	if strings.TrimSpace(canonical) != "" {
		return canonical
	}

	return alias
}

// firstPresent applies the firstNonBlank rule to optional fields. A blank
// canonical value still counts as sent when there is no alias to fall back to.
func firstPresent(canonical, alias *string) *string {
	if canonical != nil && strings.TrimSpace(*canonical) != "" {
		return canonical
	}

	if alias != nil {
		return alias
	}

	return canonical
}
