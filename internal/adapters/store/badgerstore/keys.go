package badgerstore

import (
	"fmt"
	"strings"
	"time"
)

// Key layout:
//
//	quote:<id>                              -> JSON document
//	idx:quote:created:<nanos>:<id>          -> empty, every quote
//	idx:quote:favorite:<nanos>:<id>         -> empty, favorites only
//
// Nanos are zero-padded so byte order equals time order. Iterating an index
// in reverse yields createdAt descending, then id descending.
const (
	quotePrefix         = "quote:"
	createdIndexPrefix  = "idx:quote:created:"
	favoriteIndexPrefix = "idx:quote:favorite:"
)

func quoteKey(id string) []byte {
	return []byte(quotePrefix + id)
}

func indexKey(prefix string, createdAt time.Time, id string) []byte {
	return fmt.Appendf(nil, "%s%020d:%s", prefix, createdAt.UnixNano(), id)
}

// idFromIndexKey returns the segment after the last separator.
func idFromIndexKey(key []byte) string {
	s := string(key)
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}

	return s
}

// seekLast returns a key that sorts after every key with prefix,
// the starting point for reverse iteration.
func seekLast(prefix string) []byte {
	return append([]byte(prefix), 0xFF)
}
