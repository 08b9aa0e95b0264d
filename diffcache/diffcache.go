// Package diffcache memoizes DiffResult by a stable fingerprint pair in a
// bounded LRU. It is the only piece of the diff engine with shared
// mutability, so it must be safe for concurrent use.
package diffcache

import (
	"crypto/sha256"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/quay/sbomdiff/model"
)

// Fingerprint128 is a 128-bit stable digest of a single NormalizedSbom.
type Fingerprint128 [16]byte

// Key is the cache key for one diff call: the fingerprint pair
// (fingerprint(old), fingerprint(new)). Equality is a plain struct
// compare, cheap enough for the LRU's bucket lookup.
type Key struct {
	Old, New Fingerprint128
}

// FingerprintSbom computes a stable, order-independent digest: SHA-256
// over the sorted serialization of (component count, edge count, sorted
// component fingerprints, sorted edge tuples). Reordering Components or
// Edges in s never changes the result.
func FingerprintSbom(s *model.NormalizedSbom) Fingerprint128 {
	compFps := make([]uint64, 0, len(s.Components))
	for _, c := range s.Components {
		compFps = append(compFps, uint64(c.Fingerprint()))
	}
	sort.Slice(compFps, func(i, j int) bool { return compFps[i] < compFps[j] })

	edgeTuples := make([]string, 0, len(s.Edges))
	for _, e := range s.Edges {
		edgeTuples = append(edgeTuples, string(e.From)+">"+string(e.To)+":"+string(e.Relationship))
	}
	sort.Strings(edgeTuples)

	h := sha256.New()
	writeUint64(h, uint64(len(s.Components)))
	writeUint64(h, uint64(len(s.Edges)))
	for _, f := range compFps {
		writeUint64(h, f)
	}
	for _, t := range edgeTuples {
		writeBytes(h, []byte(t))
	}

	sum := h.Sum(nil)
	var out Fingerprint128
	copy(out[:], sum[:16])
	return out
}

// FingerprintPair builds the Key for a diff(old, new) call.
func FingerprintPair(old, new *model.NormalizedSbom) Key {
	return Key{Old: FingerprintSbom(old), New: FingerprintSbom(new)}
}

type hasher interface {
	Write([]byte) (int, error)
}

func writeUint64(h hasher, v uint64) {
	var b [8]byte
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
	h.Write(b[:])
}

func writeBytes(h hasher, b []byte) {
	writeUint64(h, uint64(len(b)))
	h.Write(b)
}

// Cache memoizes DiffResult by Key. The hashicorp LRU it wraps already
// guards every operation with an internal mutex, so Cache itself needs no
// additional locking to support concurrent lookup and insertion.
type Cache struct {
	lru *lru.Cache[Key, *model.DiffResult]
}

// New builds a Cache with the given capacity. A non-positive capacity is
// treated as 1, since hashicorp's LRU requires a positive size.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = 1
	}
	c, err := lru.New[Key, *model.DiffResult](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Get returns the cached DiffResult for key, if present.
func (c *Cache) Get(key Key) (*model.DiffResult, bool) {
	if c == nil || c.lru == nil {
		return nil, false
	}
	v, ok := c.lru.Get(key)
	if ok {
		lookupCounter.WithLabelValues("hit").Inc()
	} else {
		lookupCounter.WithLabelValues("miss").Inc()
	}
	return v, ok
}

// Put inserts or overwrites the cached DiffResult for key.
func (c *Cache) Put(key Key, result *model.DiffResult) {
	if c == nil || c.lru == nil {
		return
	}
	c.lru.Add(key, result)
	insertCounter.Inc()
}
