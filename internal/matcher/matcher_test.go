package matcher

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/quay/sbomdiff/internal/diag/diagmock"
	"github.com/quay/sbomdiff/model"
)

func sbom(comps ...model.Component) *model.NormalizedSbom {
	m := make(map[model.ComponentID]*model.Component, len(comps))
	for i := range comps {
		c := comps[i]
		m[c.ID] = &c
	}
	return &model.NormalizedSbom{Components: m}
}

func matchFor(t *testing.T, matches []model.Match, old model.ComponentID) (model.Match, bool) {
	t.Helper()
	for _, m := range matches {
		if m.Old == old {
			return m, true
		}
	}
	return model.Match{}, false
}

// A patch-level bump changes both the version and the PURL's version
// qualifier, so the pair falls through every exact tier and must still be
// paired at the fuzzy tier.
func TestMatchRenamePatchVersion(t *testing.T) {
	old := sbom(model.Component{ID: "a1", Name: "lodash", Version: "4.17.20",
		Identifiers: model.Identifiers{Purl: "pkg:npm/lodash@4.17.20"}, Ecosystem: "npm"})
	new := sbom(model.Component{ID: "b1", Name: "lodash", Version: "4.17.21",
		Identifiers: model.Identifiers{Purl: "pkg:npm/lodash@4.17.21"}, Ecosystem: "npm"})

	res, err := Match(context.Background(), old, new, model.DefaultConfig(), Options{}, nil)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(res.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d: %+v", len(res.Matches), res.Matches)
	}
	m, ok := matchFor(t, res.Matches, "a1")
	if !ok || m.New != "b1" {
		t.Fatalf("expected a1 matched to b1, got %+v", res.Matches)
	}
	if len(res.UnmatchedOld) != 0 || len(res.UnmatchedNew) != 0 {
		t.Errorf("expected no leftovers, got old=%v new=%v", res.UnmatchedOld, res.UnmatchedNew)
	}
}

// Identifier drift: old has no PURL; new gains one. The PURL tier cannot
// pair them (only one side has a PURL), so the shared name+version pairs
// them at the name+version tier.
func TestMatchIdentifierDrift(t *testing.T) {
	old := sbom(model.Component{ID: "a1", Name: "jackson-databind", Version: "2.13.0"})
	new := sbom(model.Component{ID: "b1", Name: "jackson-databind", Version: "2.13.0",
		Identifiers: model.Identifiers{Purl: "pkg:maven/com.fasterxml.jackson.core/jackson-databind@2.13.0"}})

	res, err := Match(context.Background(), old, new, model.DefaultConfig(), Options{}, nil)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(res.Matches) != 1 {
		t.Fatalf("expected 1 match (identifier gained, not add+remove), got %d", len(res.Matches))
	}
	if res.Matches[0].Reason.Tier != model.TierNameVersion {
		t.Errorf("expected NameVersion tier, got %v", res.Matches[0].Reason.Tier)
	}
}

// Fuzzy match with margin rejection: two near-identical
// candidates in B score within margin of each other; neither should be
// accepted.
func TestMatchFuzzyMarginRejection(t *testing.T) {
	old := sbom(model.Component{ID: "a1", Name: "left-pad", Version: "1.0.0", Ecosystem: "npm"})
	new := sbom(
		model.Component{ID: "b1", Name: "left-pads", Version: "1.0.0", Ecosystem: "npm"},
		model.Component{ID: "b2", Name: "left-pod", Version: "1.0.0", Ecosystem: "npm"},
	)

	// The candidates score about 0.744 and 0.738; lower the threshold so both
	// clear it and only the margin rule can reject them.
	cfg := model.DefaultConfig()
	cfg.FuzzyThreshold = 0.70

	res, err := Match(context.Background(), old, new, cfg, Options{}, nil)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(res.Matches) != 0 {
		t.Fatalf("expected no fuzzy match under margin rejection, got %+v", res.Matches)
	}
	if len(res.UnmatchedOld) != 1 || len(res.UnmatchedNew) != 2 {
		t.Errorf("expected 1 removed + 2 added, got old=%v new=%v", res.UnmatchedOld, res.UnmatchedNew)
	}
}

// Injectivity: no component appears in more than one pair.
func TestMatchInjective(t *testing.T) {
	old := sbom(
		model.Component{ID: "a1", Name: "foo", Version: "1.0.0", Identifiers: model.Identifiers{Purl: "pkg:npm/foo@1.0.0"}},
		model.Component{ID: "a2", Name: "foo", Version: "1.0.0", Identifiers: model.Identifiers{Purl: "pkg:npm/foo@1.0.0"}},
	)
	new := sbom(
		model.Component{ID: "b1", Name: "foo", Version: "1.0.0", Identifiers: model.Identifiers{Purl: "pkg:npm/foo@1.0.0"}},
	)
	res, err := Match(context.Background(), old, new, model.DefaultConfig(), Options{}, nil)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	seenOld := map[model.ComponentID]bool{}
	seenNew := map[model.ComponentID]bool{}
	for _, m := range res.Matches {
		if seenOld[m.Old] || seenNew[m.New] {
			t.Fatalf("injectivity violated: %+v", res.Matches)
		}
		seenOld[m.Old] = true
		seenNew[m.New] = true
	}
	if len(res.Matches) != 1 {
		t.Fatalf("expected exactly one of the two identical-purl components to match, got %d", len(res.Matches))
	}
}

// Tier priority: a pair that could match at a later tier but already
// matched at an earlier one must not reappear.
func TestMatchTierPriorityPurlBeforeNameVersion(t *testing.T) {
	old := sbom(model.Component{ID: "a1", Name: "foo", Version: "1.0.0", Identifiers: model.Identifiers{Purl: "pkg:npm/foo@1.0.0"}})
	new := sbom(model.Component{ID: "b1", Name: "foo", Version: "1.0.0", Identifiers: model.Identifiers{Purl: "pkg:npm/foo@1.0.0"}})
	res, err := Match(context.Background(), old, new, model.DefaultConfig(), Options{}, nil)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].Reason.Tier != model.TierPurl {
		t.Fatalf("expected single Purl-tier match, got %+v", res.Matches)
	}
}

// Matching a document against itself pairs every component with its own
// clone and leaves nothing unmatched.
func TestMatchSelfDiffIdentity(t *testing.T) {
	s := sbom(
		model.Component{ID: "a1", Name: "foo", Version: "1.0.0", Identifiers: model.Identifiers{Purl: "pkg:npm/foo@1.0.0"}},
		model.Component{ID: "a2", Name: "bar", Version: "2.0.0"},
	)
	res, err := Match(context.Background(), s, s, model.DefaultConfig(), Options{}, nil)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(res.Matches) != 2 || len(res.UnmatchedOld) != 0 || len(res.UnmatchedNew) != 0 {
		t.Fatalf("expected both components matched to themselves, got %+v / old=%v / new=%v",
			res.Matches, res.UnmatchedOld, res.UnmatchedNew)
	}
}

// bom-ref tier must never fire across formats; Options.SameFormat=false
// disables it even when IDs collide.
func TestMatchBomRefDisabledAcrossFormats(t *testing.T) {
	old := sbom(model.Component{ID: "a1", Name: "foo", Identifiers: model.Identifiers{BomRef: "shared-ref"}})
	new := sbom(model.Component{ID: "b1", Name: "bar", Identifiers: model.Identifiers{BomRef: "shared-ref"}})
	res, err := Match(context.Background(), old, new, model.DefaultConfig(), Options{SameFormat: false}, nil)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(res.Matches) != 0 {
		t.Fatalf("bom-ref tier must not fire across formats, got %+v", res.Matches)
	}
}

func TestMatchBomRefEnabledSameFormat(t *testing.T) {
	old := sbom(model.Component{ID: "a1", Name: "foo", Identifiers: model.Identifiers{BomRef: "shared-ref"}})
	new := sbom(model.Component{ID: "b1", Name: "bar", Identifiers: model.Identifiers{BomRef: "shared-ref"}})
	res, err := Match(context.Background(), old, new, model.DefaultConfig(), Options{SameFormat: true}, nil)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].Reason.Tier != model.TierBomRef {
		t.Fatalf("expected bom-ref tier match, got %+v", res.Matches)
	}
}

// LSH correctness at scale: a copy of A with a handful of components
// renamed by one character should still match the overwhelming majority at
// the fuzzy tier once the LSH threshold forces the candidate generator
// into play.
func TestMatchLSHRecallAtScale(t *testing.T) {
	const n = 200
	var oldComps, newComps []model.Component
	renamed := map[int]bool{3: true, 47: true, 101: true, 150: true, 190: true}
	for i := 0; i < n; i++ {
		name := fakeName(i)
		oldComps = append(oldComps, model.Component{
			ID: fakeID("a", i), Name: name, Version: "1.0.0", Ecosystem: "npm",
			Identifiers: model.Identifiers{Purl: "pkg:npm/" + name + "@1.0.0"},
		})
		newName := name
		if renamed[i] {
			newName = name + "x"
		}
		newComps = append(newComps, model.Component{
			ID: fakeID("b", i), Name: newName, Version: "1.0.0", Ecosystem: "npm",
			Identifiers: model.Identifiers{Purl: "pkg:npm/" + newName + "@1.0.0"},
		})
	}
	old := sbom(oldComps...)
	new := sbom(newComps...)

	cfg := model.DefaultConfig()
	cfg.LSHThreshold = 100 // n*n is far above this, forcing the LSH path

	res, err := Match(context.Background(), old, new, cfg, Options{}, nil)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(res.Matches) < n-len(renamed) {
		t.Fatalf("expected at least %d exact matches, got %d", n-len(renamed), len(res.Matches))
	}
	fuzzyMatched := 0
	for _, m := range res.Matches {
		if m.Reason.Tier == model.TierFuzzy {
			fuzzyMatched++
		}
		if m.Reason.Tier == model.TierFuzzy && m.Confidence > 0.84 {
			t.Errorf("fuzzy confidence must stay below the hash tier's 0.85, got %v", m.Confidence)
		}
	}
	if fuzzyMatched < len(renamed)-1 {
		t.Errorf("expected most renamed components to still match via fuzzy/LSH tier, got %d/%d", fuzzyMatched, len(renamed))
	}
}

func fakeID(prefix string, i int) model.ComponentID {
	return model.ComponentID(prefix + "-" + strconv.Itoa(i))
}

// fakeName spreads indices over hex strings so distinct components are far
// apart in edit distance and only the deliberate one-character renames
// land near each other.
func fakeName(i int) string {
	return fmt.Sprintf("lib-%08x", uint32(i)*2654435761)
}

// Malformed purl on one side must not abort the diff; it should warn and
// fall through to a later tier.
func TestMatchMalformedPurlWarnsAndFallsThrough(t *testing.T) {
	old := sbom(model.Component{ID: "a1", Name: "foo", Version: "1.0.0", Identifiers: model.Identifiers{Purl: "not a purl"}})
	new := sbom(model.Component{ID: "b1", Name: "foo", Version: "1.0.0"})

	ctrl := gomock.NewController(t)
	sink := diagmock.NewMockSink(ctrl)
	sink.EXPECT().Warn(gomock.Any()).Times(1)

	res, err := Match(context.Background(), old, new, model.DefaultConfig(), Options{}, sink)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].Reason.Tier != model.TierNameVersion {
		t.Fatalf("expected fallthrough to NameVersion tier, got %+v", res.Matches)
	}
}

func TestMatchCancellation(t *testing.T) {
	old := sbom(model.Component{ID: "a1", Name: "foo", Version: "1.0.0"})
	new := sbom(model.Component{ID: "b1", Name: "bar", Version: "2.0.0"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Match(ctx, old, new, model.DefaultConfig(), Options{}, nil)
	if err != ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}
