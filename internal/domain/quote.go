// Package domain contains core business entities and rules.
package domain

import (
	"strings"
	"time"
)

// EntityQuote is the entity name used in domain errors.
const EntityQuote = "quote"

// Quote is a single stored quotation with its metadata.
// This is a domain entity - it has no knowledge of external systems.
type Quote struct {
	// ID is assigned by the record store on insert and never reused.
	ID string

	// Text is the quotation body. Never empty after trimming.
	Text string

	// Author is who said or wrote the quote. Never empty after trimming.
	Author string

	// Source is the optional book, speech or other origin.
	Source string

	// Tags keep the order they were submitted in. Duplicates are allowed.
	Tags []string

	Favorite  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QuoteInput carries the fields of a quote submitted for creation.
type QuoteInput struct {
	Text     string
	Author   string
	Source   string
	Tags     []string
	Favorite bool
}

// Normalize trims every field and checks the required ones.
// A blank text, author or tag entry is rejected rather than corrected.
func (in QuoteInput) Normalize() (QuoteInput, error) {
	out := QuoteInput{
		Text:     strings.TrimSpace(in.Text),
		Author:   strings.TrimSpace(in.Author),
		Source:   strings.TrimSpace(in.Source),
		Favorite: in.Favorite,
	}

	if out.Text == "" {
		return QuoteInput{}, NewValidationError("text", "is required")
	}

	if out.Author == "" {
		return QuoteInput{}, NewValidationError("author", "is required")
	}

	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return QuoteInput{}, err
	}

	out.Tags = tags

	return out, nil
}

// NewQuote builds an unsaved quote from normalized input.
func (in QuoteInput) NewQuote(id string, now time.Time) Quote {
	tags := make([]string, len(in.Tags))
	copy(tags, in.Tags)

	return Quote{
		ID:        id,
		Text:      in.Text,
		Author:    in.Author,
		Source:    in.Source,
		Tags:      tags,
		Favorite:  in.Favorite,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// QuotePatch is a partial update. Nil fields are left unchanged.
type QuotePatch struct {
	Text     *string
	Author   *string
	Source   *string
	Tags     *[]string
	Favorite *bool
}

// Normalize trims the present fields and re-checks the create-time rules for them.
func (p QuotePatch) Normalize() (QuotePatch, error) {
	var out QuotePatch

	if p.Text != nil {
		text := strings.TrimSpace(*p.Text)
		if text == "" {
			return QuotePatch{}, NewValidationError("text", "must not be empty")
		}

		out.Text = &text
	}

	if p.Author != nil {
		author := strings.TrimSpace(*p.Author)
		if author == "" {
			return QuotePatch{}, NewValidationError("author", "must not be empty")
		}

		out.Author = &author
	}

	if p.Source != nil {
		source := strings.TrimSpace(*p.Source)
		out.Source = &source
	}

	if p.Tags != nil {
		tags, err := normalizeTags(*p.Tags)
		if err != nil {
			return QuotePatch{}, err
		}

		out.Tags = &tags
	}

	if p.Favorite != nil {
		favorite := *p.Favorite
		out.Favorite = &favorite
	}

	return out, nil
}

// IsEmpty reports whether the patch changes nothing.
func (p QuotePatch) IsEmpty() bool {
	return p.Text == nil && p.Author == nil && p.Source == nil && p.Tags == nil && p.Favorite == nil
}

// Apply merges the patch into q and stamps UpdatedAt.
func (p QuotePatch) Apply(q *Quote, now time.Time) {
	if p.Text != nil {
		q.Text = *p.Text
	}

	if p.Author != nil {
		q.Author = *p.Author
	}

	if p.Source != nil {
		q.Source = *p.Source
	}

	if p.Tags != nil {
		tags := make([]string, len(*p.Tags))
		copy(tags, *p.Tags)
		q.Tags = tags
	}

	if p.Favorite != nil {
		q.Favorite = *p.Favorite
	}

	q.touch(now)
}

// ToggleFavorite flips the favorite flag and stamps UpdatedAt.
func (q *Quote) ToggleFavorite(now time.Time) {
	q.Favorite = !q.Favorite
	q.touch(now)
}

// touch keeps UpdatedAt monotonic even if the clock steps backwards.
func (q *Quote) touch(now time.Time) {
	if now.Before(q.UpdatedAt) {
		return
	}

	q.UpdatedAt = now
}

func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))

	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			return nil, NewValidationErrorWithValue("tags", "entries must not be empty", tag)
		}

		out = append(out, trimmed)
	}

	return out, nil
}
