package store

import (
	"strconv"
	"sync"
)

// Key prefixes.
const (
	sessionPrefix  = "rsession:"
	openPrefix     = "rsession:open:" // (user, book) -> ID of the open session
	progressPrefix = "rprogress:"
	bookPrefix     = "book:"
	categoryPrefix = "category:"
)

// keyPool provides reusable byte slices for building database keys.
var keyPool = sync.Pool{
	New: func() any {
		// Prefix plus two NanoIDs fits comfortably.
		return make([]byte, 0, 256)
	},
}

// buildKey constructs a database key from prefix and suffix using a pooled buffer.
// Callers MUST call releaseKey when done with the key.
//
//	key := buildKey(bookPrefix, bookID)
//	defer releaseKey(key)
//	item, err := txn.Get(key)
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}

// idPart length-prefixes an ID ("6:user-1") so composite keys built from
// arbitrary IDs stay prefix-free: the parts for (u, "b") never prefix those
// for (u, "b:2").
func idPart(id string) string {
	return strconv.Itoa(len(id)) + ":" + id
}

func pairKey(userID, bookID string) string {
	return idPart(userID) + idPart(bookID)
}

func openKey(userID, bookID string) []byte {
	return []byte(openPrefix + pairKey(userID, bookID))
}
