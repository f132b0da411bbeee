// Package storetest holds the behavioural contract every quote store backend must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotenest/internal/domain"
	"github.com/jsamuelsen/quotenest/internal/ports"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) ports.QuoteRepository

// Run executes the contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, repo ports.QuoteRepository)
	}{
		{"InsertThenGet", testInsertThenGet},
		{"GetMissing", testGetMissing},
		{"FavoritesNewestFirst", testFavoritesNewestFirst},
		{"SecondPage", testSecondPage},
		{"PageBeyondEnd", testPageBeyondEnd},
		{"FindIsIdempotent", testFindIsIdempotent},
		{"TagMatchesExactIgnoringCase", testTagMatch},
		{"SearchAcrossFields", testSearch},
		{"BlankSearchRejected", testBlankSearch},
		{"UpdateMergesFields", testUpdate},
		{"UpdateMissing", testUpdateMissing},
		{"ToggleIsInvolution", testToggleInvolution},
		{"ToggleMissing", testToggleMissing},
		{"ConcurrentTogglesAreAtomic", testConcurrentToggles},
		{"ConcurrentDeleteAndToggle", testConcurrentDeleteAndToggle},
		{"DeleteRemovesRecord", testDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func insert(t *testing.T, repo ports.QuoteRepository, in domain.QuoteInput) *domain.Quote {
	t.Helper()

	normalized, err := in.Normalize()
	require.NoError(t, err)

	q, err := repo.Insert(context.Background(), normalized)
	require.NoError(t, err)

	return q
}

func seed(t *testing.T, repo ports.QuoteRepository, n int) []*domain.Quote {
	t.Helper()

	out := make([]*domain.Quote, 0, n)
	for i := range n {
		out = append(out, insert(t, repo, domain.QuoteInput{
			Text:   fmt.Sprintf("quote number %d", i),
			Author: "Author",
		}))
	}

	return out
}

func ids(quotes []domain.Quote) []string {
	out := make([]string, len(quotes))
	for i, q := range quotes {
		out[i] = q.ID
	}

	return out
}

func testInsertThenGet(t *testing.T, repo ports.QuoteRepository) {
	ctx := context.Background()

	created := insert(t, repo, domain.QuoteInput{
		Text:     "Simplicity is prerequisite for reliability.",
		Author:   "Edsger W. Dijkstra",
		Source:   "EWD498",
		Tags:     []string{"software", "design"},
		Favorite: true,
	})

	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Simplicity is prerequisite for reliability.", got.Text)
	assert.Equal(t, "Edsger W. Dijkstra", got.Author)
	assert.Equal(t, "EWD498", got.Source)
	assert.Equal(t, []string{"software", "design"}, got.Tags)
	assert.True(t, got.Favorite)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func testGetMissing(t *testing.T, repo ports.QuoteRepository) {
	_, err := repo.Get(context.Background(), "0190d9c2-0000-7000-8000-000000000000")

	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func testFavoritesNewestFirst(t *testing.T, repo ports.QuoteRepository) {
	ctx := context.Background()

	insert(t, repo, domain.QuoteInput{Text: "A", Author: "x"})
	b := insert(t, repo, domain.QuoteInput{Text: "B", Author: "x", Favorite: true})
	c := insert(t, repo, domain.QuoteInput{Text: "C", Author: "x", Favorite: true})

	items, err := repo.Find(ctx, domain.FavoritesOnly(), domain.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, b.ID}, ids(items))

	total, err := repo.Count(ctx, domain.FavoritesOnly())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func testSecondPage(t *testing.T, repo ports.QuoteRepository) {
	ctx := context.Background()
	quotes := seed(t, repo, 12)

	items, err := repo.Find(ctx, domain.AllQuotes(), domain.NewPageRequest(2, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{quotes[1].ID, quotes[0].ID}, ids(items))

	first, err := repo.Find(ctx, domain.AllQuotes(), domain.NewPageRequest(1, 10))
	require.NoError(t, err)
	require.Len(t, first, 10)
	assert.Equal(t, quotes[11].ID, first[0].ID)
	assert.Equal(t, quotes[2].ID, first[9].ID)

	total, err := repo.Count(ctx, domain.AllQuotes())
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
}

func testPageBeyondEnd(t *testing.T, repo ports.QuoteRepository) {
	ctx := context.Background()
	seed(t, repo, 3)

	items, err := repo.Find(ctx, domain.AllQuotes(), domain.NewPageRequest(99, 10))
	require.NoError(t, err)
	assert.Empty(t, items)

	total, err := repo.Count(ctx, domain.AllQuotes())
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func testFindIsIdempotent(t *testing.T, repo ports.QuoteRepository) {
	ctx := context.Background()
	seed(t, repo, 7)

	first, err := repo.Find(ctx, domain.AllQuotes(), domain.NewPageRequest(1, 5))
	require.NoError(t, err)

	second, err := repo.Find(ctx, domain.AllQuotes(), domain.NewPageRequest(1, 5))
	require.NoError(t, err)

	assert.Equal(t, ids(first), ids(second))
}

func testTagMatch(t *testing.T, repo ports.QuoteRepository) {
	ctx := context.Background()

	life := insert(t, repo, domain.QuoteInput{Text: "one", Author: "x", Tags: []string{"Life"}})
	insert(t, repo, domain.QuoteInput{Text: "two", Author: "x", Tags: []string{"lifestyle"}})
	both := insert(t, repo, domain.QuoteInput{Text: "three", Author: "x", Tags: []string{"work", "life"}})

	items, err := repo.Find(ctx, domain.ByTag("LIFE"), domain.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{both.ID, life.ID}, ids(items))

	total, err := repo.Count(ctx, domain.ByTag("life"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func testSearch(t *testing.T, repo ports.QuoteRepository) {
	ctx := context.Background()

	byText := insert(t, repo, domain.QuoteInput{Text: "Wisdom begins in wonder.", Author: "Socrates"})
	byAuthor := insert(t, repo, domain.QuoteInput{Text: "Know thyself.", Author: "Wonderful Anon"})
	bySource := insert(t, repo, domain.QuoteInput{Text: "Hmm.", Author: "Yoda", Source: "A Wonder Of Dagobah"})
	byTag := insert(t, repo, domain.QuoteInput{Text: "...", Author: "Z", Tags: []string{"wondering"}})
	insert(t, repo, domain.QuoteInput{Text: "Nothing here", Author: "Nobody"})
	literal := insert(t, repo, domain.QuoteInput{Text: "100% sure (maybe)", Author: "Q"})

	items, err := repo.Find(ctx, domain.Search("WONDER"), domain.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{byTag.ID, bySource.ID, byAuthor.ID, byText.ID}, ids(items))

	total, err := repo.Count(ctx, domain.Search("wonder"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	items, err = repo.Find(ctx, domain.Search("% sure (m"), domain.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{literal.ID}, ids(items))

	items, err = repo.Find(ctx, domain.Search("w.nder"), domain.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func testBlankSearch(t *testing.T, repo ports.QuoteRepository) {
	_, err := repo.Find(context.Background(), domain.Search("   "), domain.NewPageRequest(1, 10))

	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func testUpdate(t *testing.T, repo ports.QuoteRepository) {
	ctx := context.Background()
	q := insert(t, repo, domain.QuoteInput{Text: "old", Author: "A", Source: "S", Tags: []string{"x"}})

	text := "new"
	tags := []string{"y"}

	updated, err := repo.Update(ctx, q.ID, domain.QuotePatch{Text: &text, Tags: &tags})
	require.NoError(t, err)

	assert.Equal(t, "new", updated.Text)
	assert.Equal(t, "A", updated.Author)
	assert.Equal(t, "S", updated.Source)
	assert.Equal(t, []string{"y"}, updated.Tags)
	assert.False(t, updated.UpdatedAt.Before(q.UpdatedAt))

	got, err := repo.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Text)
	assert.Equal(t, []string{"y"}, got.Tags)
	assert.True(t, q.CreatedAt.Equal(got.CreatedAt))
}

func testUpdateMissing(t *testing.T, repo ports.QuoteRepository) {
	text := "x"

	_, err := repo.Update(context.Background(), "0190d9c2-0000-7000-8000-000000000000", domain.QuotePatch{Text: &text})

	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func testToggleInvolution(t *testing.T, repo ports.QuoteRepository) {
	ctx := context.Background()
	q := insert(t, repo, domain.QuoteInput{Text: "t", Author: "a"})

	once, err := repo.ToggleFavorite(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, once.Favorite)

	favorites, err := repo.Count(ctx, domain.FavoritesOnly())
	require.NoError(t, err)
	assert.Equal(t, int64(1), favorites)

	twice, err := repo.ToggleFavorite(ctx, q.ID)
	require.NoError(t, err)
	assert.False(t, twice.Favorite)

	favorites, err = repo.Count(ctx, domain.FavoritesOnly())
	require.NoError(t, err)
	assert.Equal(t, int64(0), favorites)
}

func testToggleMissing(t *testing.T, repo ports.QuoteRepository) {
	_, err := repo.ToggleFavorite(context.Background(), "0190d9c2-0000-7000-8000-000000000000")

	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func testConcurrentToggles(t *testing.T, repo ports.QuoteRepository) {
	ctx := context.Background()
	q := insert(t, repo, domain.QuoteInput{Text: "race", Author: "a"})

	const workers = 9

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for range workers {
		wg.Go(func() {
			if _, err := repo.ToggleFavorite(ctx, q.ID); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		})
	}

	wg.Wait()
	require.Empty(t, errs)

	got, err := repo.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, got.Favorite, "an odd number of flips must leave the quote favorited")
}

// testConcurrentDeleteAndToggle races deletes against toggles on one quote.
// Exactly one delete wins; every other call either succeeds or reports the
// quote as missing.
func testConcurrentDeleteAndToggle(t *testing.T, repo ports.QuoteRepository) {
	ctx := context.Background()

	const (
		rounds  = 20
		workers = 4
	)

	for round := range rounds {
		q := insert(t, repo, domain.QuoteInput{Text: fmt.Sprintf("contested %d", round), Author: "a"})

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			deleted int
			errs    []error
		)

		record := func(err error, isDelete bool) {
			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil && isDelete:
				deleted++
			case err != nil && !domain.IsNotFound(err):
				errs = append(errs, err)
			}
		}

		for range workers {
			wg.Go(func() { record(repo.Delete(ctx, q.ID), true) })
			wg.Go(func() {
				_, err := repo.ToggleFavorite(ctx, q.ID)
				record(err, false)
			})
		}

		wg.Wait()

		require.Empty(t, errs, "round %d", round)
		assert.Equal(t, 1, deleted, "round %d", round)

		_, err := repo.Get(ctx, q.ID)
		assert.True(t, domain.IsNotFound(err), "round %d", round)
	}
}

func testDelete(t *testing.T, repo ports.QuoteRepository) {
	ctx := context.Background()
	q := insert(t, repo, domain.QuoteInput{Text: "bye", Author: "a", Favorite: true})

	require.NoError(t, repo.Delete(ctx, q.ID))

	_, err := repo.Get(ctx, q.ID)
	assert.True(t, domain.IsNotFound(err))

	err = repo.Delete(ctx, q.ID)
	assert.True(t, domain.IsNotFound(err))

	favorites, err := repo.Count(ctx, domain.FavoritesOnly())
	require.NoError(t, err)
	assert.Equal(t, int64(0), favorites)
}
