package badgerstore

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/jsamuelsen/quotenest/internal/domain"
)

// indexed reports whether the filter is fully answered by an index,
// so skipping and counting need no document reads.
func indexed(filter domain.Filter) bool {
	return filter.Kind == domain.FilterAll || filter.Kind == domain.FilterFavorites
}

func indexPrefix(filter domain.Filter) string {
	if filter.Kind == domain.FilterFavorites {
		return favoriteIndexPrefix
	}

	return createdIndexPrefix
}

// scan walks quotes newest first, skipping the first skip matches, and hands each
// further match to fn until fn returns false.
func scan(ctx context.Context, txn *badger.Txn, filter domain.Filter, skip int, fn func(q *domain.Quote) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefix := indexPrefix(filter)
	fullyIndexed := indexed(filter)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.Reverse = true
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(seekLast(prefix)); it.ValidForPrefix(opts.Prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if fullyIndexed && skip > 0 {
			skip--
			continue
		}

		q, err := getQuote(txn, idFromIndexKey(it.Item().Key()))
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}

		if err != nil {
			return err
		}

		if !filter.Matches(q) {
			continue
		}

		if skip > 0 {
			skip--
			continue
		}

		if !fn(q) {
			return nil
		}
	}

	return nil
}

func countKeys(ctx context.Context, txn *badger.Txn, prefix string, total *int64) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}

		*total++
	}

	return nil
}
