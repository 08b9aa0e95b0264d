// Package lsh implements the MinHash/LSH candidate generator backing the
// matcher's fuzzy tier at scale: a 4-character shingle set over a
// canonicalized component string, 128 MinHash functions banded b=32/r=4,
// producing a sub-quadratic candidate set in place of the full cross
// product.
package lsh

import (
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// NumHashes is the fixed MinHash function count.
const NumHashes = 128

// ShingleSize is the shingle length in runes over the canonicalized string.
const ShingleSize = 4

// Signature is a component's MinHash signature.
type Signature [NumHashes]uint64

// seeds are derived once from a fixed constant (not process randomness) so
// that signatures, and therefore diffs, are reproducible across runs and
// across processes.
var seeds = makeSeeds(0x9E3779B97F4A7C15)

func makeSeeds(seed uint64) [NumHashes]uint64 {
	var s [NumHashes]uint64
	x := seed
	for i := range s {
		// splitmix64
		x += 0x9E3779B97F4A7C15
		z := x
		z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
		z = (z ^ (z >> 27)) * 0x94D049BB133111EB
		z = z ^ (z >> 31)
		s[i] = z
	}
	return s
}

// Canonicalize builds the shingle-set input string:
// name|version|ecosystem|purl_path, lowercased.
func Canonicalize(name, version, ecosystem, purlPath string) string {
	return strings.ToLower(name + "|" + version + "|" + ecosystem + "|" + purlPath)
}

// Shingles returns the set of ShingleSize-rune substrings of s. Strings
// shorter than ShingleSize produce a single shingle equal to s itself so
// short names still participate in matching.
func Shingles(s string) map[string]struct{} {
	r := []rune(s)
	if len(r) <= ShingleSize {
		return map[string]struct{}{s: {}}
	}
	out := make(map[string]struct{}, len(r)-ShingleSize+1)
	for i := 0; i+ShingleSize <= len(r); i++ {
		out[string(r[i:i+ShingleSize])] = struct{}{}
	}
	return out
}

// Sign computes the MinHash signature of the canonicalized string s.
func Sign(s string) Signature {
	var sig Signature
	for i := range sig {
		sig[i] = ^uint64(0)
	}
	for sh := range Shingles(s) {
		base := xxhash.Sum64String(sh)
		for i, seed := range seeds {
			v := mix(base, seed)
			if v < sig[i] {
				sig[i] = v
			}
		}
	}
	return sig
}

// mix combines a shingle hash with a hash-function seed. Two xxhash
// evaluations per (shingle, seed) pair would be expensive at 128 functions;
// instead we perturb the base hash with the seed via a cheap finalizer,
// which is the standard trick for deriving a hash family from one base hash
// and keeps signature computation linear in shingle count.
func mix(base, seed uint64) uint64 {
	z := base ^ seed
	z = (z ^ (z >> 33)) * 0xFF51AFD7ED558CCD
	z = (z ^ (z >> 33)) * 0xC4CEB9FE1A85EC53
	z = z ^ (z >> 33)
	return z
}

// Index is a banded LSH index: components whose signatures agree on every
// row within at least one band are bucketed together and become candidates
// for one another.
type Index struct {
	bands, rows int
	buckets     []map[uint64][]int
}

// NewIndex builds an empty Index. bands*rows should equal NumHashes
// (default 32*4=128); a mismatch is tolerated by only scanning
// min(bands*rows, NumHashes) of the signature.
func NewIndex(bands, rows int) *Index {
	if rows > 0 && bands*rows > NumHashes {
		bands = (NumHashes + rows - 1) / rows
	}
	ix := &Index{bands: bands, rows: rows, buckets: make([]map[uint64][]int, bands)}
	for i := range ix.buckets {
		ix.buckets[i] = make(map[uint64][]int)
	}
	return ix
}

// Add inserts item i's signature into the index.
func (ix *Index) Add(i int, sig Signature) {
	for b := 0; b < ix.bands; b++ {
		bh := ix.bandHash(sig, b)
		ix.buckets[b][bh] = append(ix.buckets[b][bh], i)
	}
}

func (ix *Index) bandHash(sig Signature, band int) uint64 {
	start := band * ix.rows
	end := start + ix.rows
	if end > NumHashes {
		end = NumHashes
	}
	h := xxhash.New()
	var buf [8]byte
	for _, v := range sig[start:end] {
		for i := range buf {
			buf[i] = byte(v >> (8 * i))
		}
		h.Write(buf[:])
	}
	return h.Sum64()
}

// Candidates returns up to max item indices that share at least one band
// bucket with sig, ranked by descending band-collision count so capping
// keeps the most-likely neighbors.
func (ix *Index) Candidates(sig Signature, max int) []int {
	collisions := make(map[int]int)
	for b := 0; b < ix.bands; b++ {
		bh := ix.bandHash(sig, b)
		for _, j := range ix.buckets[b][bh] {
			collisions[j]++
		}
	}
	out := make([]int, 0, len(collisions))
	for j := range collisions {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool {
		if collisions[out[i]] != collisions[out[j]] {
			return collisions[out[i]] > collisions[out[j]]
		}
		return out[i] < out[j]
	})
	if len(out) > max {
		out = out[:max]
	}
	return out
}
