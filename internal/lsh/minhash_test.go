package lsh

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"testing/quick"
)

// renamePair is a quick.Generator producing a base canonicalized string and
// a copy with one character position redrawn at random, so at most
// ShingleSize shingles differ, which keeps their shingle-set Jaccard
// similarity at or above 0.6 for the alphabet and length used here.
type renamePair struct {
	base, mutated string
}

func (renamePair) Generate(r *rand.Rand, size int) reflect.Value {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	n := 20 + r.Intn(12)
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[r.Intn(len(alphabet))])
	}
	base := b.String()

	mutatedRunes := []rune(base)
	mutatedRunes[r.Intn(len(mutatedRunes))] = rune(alphabet[r.Intn(len(alphabet))])
	mutated := string(mutatedRunes)

	return reflect.ValueOf(renamePair{base: base, mutated: mutated})
}

func TestSignDeterministic(t *testing.T) {
	s := Canonicalize("lodash", "4.17.20", "npm", "lodash")
	if Sign(s) != Sign(s) {
		t.Errorf("Sign must be deterministic for identical input")
	}
}

func TestSignIdenticalStringsEqualSignatures(t *testing.T) {
	a := Canonicalize("foo", "1.0.0", "npm", "foo")
	b := Canonicalize("foo", "1.0.0", "npm", "foo")
	if Sign(a) != Sign(b) {
		t.Errorf("identical canonicalized strings must produce identical signatures")
	}
}

func TestShinglesShortString(t *testing.T) {
	sh := Shingles("ab")
	if len(sh) != 1 {
		t.Fatalf("expected a single shingle for a string shorter than ShingleSize, got %d", len(sh))
	}
	if _, ok := sh["ab"]; !ok {
		t.Errorf("expected the whole short string as its own shingle, got %+v", sh)
	}
}

func TestShinglesLongString(t *testing.T) {
	sh := Shingles("abcdef")
	want := map[string]struct{}{"abcd": {}, "bcde": {}, "cdef": {}}
	if len(sh) != len(want) {
		t.Fatalf("expected %d shingles, got %d: %+v", len(want), len(sh), sh)
	}
	for k := range want {
		if _, ok := sh[k]; !ok {
			t.Errorf("missing shingle %q", k)
		}
	}
}

// An item sharing its exact signature with the query must always appear as
// a candidate (every band agrees by construction); broader statistical
// recall over near-duplicates at Jaccard >= 0.6 is exercised at scale by
// TestMatchLSHRecallAtScale in internal/matcher.
func TestIndexCandidatesFindsExactSignatureMatch(t *testing.T) {
	index := NewIndex(32, 4)
	target := Canonicalize("jackson-databind", "2.13.0", "maven", "com.fasterxml.jackson.core/jackson-databind")
	far := Canonicalize("completely-different-package-name", "9.9.9", "pypi", "")

	index.Add(0, Sign(target))
	index.Add(1, Sign(far))

	candidates := index.Candidates(Sign(target), 10)
	found := false
	for _, c := range candidates {
		if c == 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the identical-signature item to be a candidate, got %v", candidates)
	}
}

// TestIndexRecallUnderSingleCharRename draws 1,000 quick.Generator trials
// of a base string against a one-character rename of it, and requires the
// renamed signature to surface the base as an LSH candidate in at least
// 95% of trials. A handful of misses are expected: banding is probabilistic
// and a single-character edit occasionally falls in unlucky shingle
// positions for short strings.
func TestIndexRecallUnderSingleCharRename(t *testing.T) {
	const trials = 1000
	rnd := rand.New(rand.NewSource(1))
	hits := 0
	for i := 0; i < trials; i++ {
		v, ok := quick.Value(reflect.TypeOf(renamePair{}), rnd)
		if !ok {
			t.Fatalf("quick.Value failed to generate a renamePair at trial %d", i)
		}
		pair := v.Interface().(renamePair)

		index := NewIndex(32, 4)
		index.Add(0, Sign(pair.base))

		for _, c := range index.Candidates(Sign(pair.mutated), 10) {
			if c == 0 {
				hits++
				break
			}
		}
	}

	recall := float64(hits) / float64(trials)
	if recall < 0.95 {
		t.Errorf("LSH recall over %d single-char-rename trials = %.3f, want >= 0.95 (%d/%d hits)", trials, recall, hits, trials)
	}
}

func TestIndexCandidatesRespectsMax(t *testing.T) {
	index := NewIndex(32, 4)
	for i := 0; i < 20; i++ {
		s := Canonicalize("same-name", "1.0.0", "npm", "same-name")
		index.Add(i, Sign(s))
	}
	candidates := index.Candidates(Sign(Canonicalize("same-name", "1.0.0", "npm", "same-name")), 5)
	if len(candidates) > 5 {
		t.Errorf("expected at most 5 candidates, got %d", len(candidates))
	}
}
