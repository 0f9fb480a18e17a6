package core

import (
	"maps"
	"slices"
)

// Index is the in-memory key to value map derived from the log.
//
// It is the only structure consulted by reads, so Get never touches disk.
// It is rebuilt on every Open by replaying the log and is never persisted
// itself. Index has no notion of "not found" errors; that policy belongs
// to Store.
type Index struct {
	m map[string][]byte
}

func NewIndex() *Index {
	return &Index{m: make(map[string][]byte)}
}

func (ix *Index) Get(key string) ([]byte, bool) {
	v, ok := ix.m[key]
	return v, ok
}

// Set upserts key and returns the value it replaced, if any.
func (ix *Index) Set(key string, value []byte) ([]byte, bool) {
	prev, ok := ix.m[key]
	ix.m[key] = value
	return prev, ok
}

// Remove deletes key if present and returns the removed value.
func (ix *Index) Remove(key string) ([]byte, bool) {
	prev, ok := ix.m[key]
	if ok {
		delete(ix.m, key)
	}
	return prev, ok
}

func (ix *Index) Len() int {
	return len(ix.m)
}

// Keys returns every key in ascending byte order.
func (ix *Index) Keys() []string {
	return slices.Sorted(maps.Keys(ix.m))
}
