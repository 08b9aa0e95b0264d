// Package matcher pairs components across two SBOM documents: strict
// identifier-preference tiers first, then a fuzzy scorer accelerated by
// LSH candidate generation for large inputs.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/quay/sbomdiff/internal/cpe"
	"github.com/quay/sbomdiff/internal/diag"
	"github.com/quay/sbomdiff/internal/lsh"
	"github.com/quay/sbomdiff/model"
)

// ErrCancelled is returned when the supplied context is cancelled during a
// long-running loop (fuzzy scoring or LSH indexing). No partial result is
// returned.
var ErrCancelled = errors.New("matcher: cancelled")

// ResourceLimitError reports that a component's candidate set exceeded an
// implementation ceiling even after max_candidates capping. It is
// non-fatal: the matcher falls back to skipping the fuzzy tier for that
// component and reports it unmatched.
type ResourceLimitError struct {
	Component model.ComponentID
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("matcher: candidate set for %q exceeded resource ceiling", e.Component)
}

// absoluteCandidateCeiling bounds a single component's fuzzy-scoring loop:
// if max_candidates capping somehow still leaves a candidate set over this
// size, it's a ResourceLimitError rather than an unbounded scoring loop.
const absoluteCandidateCeiling = 1_000_000

// maxFuzzyConfidence keeps fuzzy-tier confidence strictly below the hash
// tier's fixed 0.85 so downstream confidence thresholds preserve tier
// ordering.
const maxFuzzyConfidence = 0.84

// Result is the matcher's output: the pairs it found plus the leftovers on
// each side.
type Result struct {
	Matches      []model.Match
	UnmatchedOld []model.ComponentID
	UnmatchedNew []model.ComponentID
	Stats        model.MatchStats
}

// Options carries the cross-document context the tiers need beyond
// DiffConfig.
type Options struct {
	// SameFormat must be true only when both documents are CycloneDX; the
	// bom-ref tier never fires otherwise, since a bom-ref has no
	// cross-format meaning.
	SameFormat bool
}

// Match runs the tiered matcher over old and new. Each tier sees only
// components still unmatched after the tiers before it, so no component
// ever appears in more than one pair.
func Match(ctx context.Context, old, new *model.NormalizedSbom, cfg model.DiffConfig, opts Options, sink diag.Sink) (*Result, error) {
	if sink == nil {
		sink = diag.Noop{}
	}

	oldOrder := sortedIDs(old)
	newOrder := sortedIDs(new)

	remOld := make(map[model.ComponentID]bool, len(oldOrder))
	for _, id := range oldOrder {
		remOld[id] = true
	}
	remNew := make(map[model.ComponentID]bool, len(newOrder))
	for _, id := range newOrder {
		remNew[id] = true
	}

	var matches []model.Match
	var stats model.MatchStats

	// Tier 1: PURL exact.
	runExactTier(model.TierPurl, oldOrder, old, new, remOld, remNew, &matches, &stats, sink,
		func(c *model.Component) (string, bool) {
			if c.Identifiers.Purl == "" {
				return "", false
			}
			k, ok := CanonicalPurlKey(c.Identifiers.Purl)
			if !ok {
				sink.Warn(diag.Warning{Level: diag.LevelWarn, Code: "matcher.malformed_purl",
					Message: "component has unparseable purl, skipping purl tier",
					Fields:  map[string]any{"component": string(c.ID), "purl": c.Identifiers.Purl}})
			}
			return k, ok
		})

	// Tier 2: CPE exact.
	runExactTier(model.TierCpe, oldOrder, old, new, remOld, remNew, &matches, &stats, sink,
		func(c *model.Component) (string, bool) {
			if c.Identifiers.CPE == "" {
				return "", false
			}
			k, ok := cpe.Canonical(c.Identifiers.CPE)
			if !ok {
				sink.Warn(diag.Warning{Level: diag.LevelWarn, Code: "matcher.malformed_cpe",
					Message: "component has unparseable cpe, skipping cpe tier",
					Fields:  map[string]any{"component": string(c.ID), "cpe": c.Identifiers.CPE}})
			}
			return k, ok
		})

	// Tier 3: SWID tagId exact.
	runExactTier(model.TierSwid, oldOrder, old, new, remOld, remNew, &matches, &stats, sink,
		func(c *model.Component) (string, bool) {
			if c.Identifiers.SWID == "" {
				return "", false
			}
			return c.Identifiers.SWID, true
		})

	// Tier 4: bom-ref exact, CycloneDX-to-CycloneDX only.
	if opts.SameFormat {
		runExactTier(model.TierBomRef, oldOrder, old, new, remOld, remNew, &matches, &stats, sink,
			func(c *model.Component) (string, bool) {
				if c.Identifiers.BomRef == "" {
					return "", false
				}
				return c.Identifiers.BomRef, true
			})
	}

	// Tier 5: name+version exact.
	runExactTier(model.TierNameVersion, oldOrder, old, new, remOld, remNew, &matches, &stats, sink,
		func(c *model.Component) (string, bool) {
			if c.Name == "" {
				return "", false
			}
			return strings.ToLower(c.Name) + "@" + trimLeadingV(c.Version), true
		})

	// Tier 6: hash match (any algorithm,value pair equal).
	runHashTier(oldOrder, old, new, remOld, remNew, &matches, &stats)

	// Tier 7: fuzzy.
	if err := runFuzzyTier(ctx, oldOrder, old, new, remOld, remNew, cfg, &matches, &stats, sink); err != nil {
		return nil, err
	}

	var unmatchedOld, unmatchedNew []model.ComponentID
	for _, id := range oldOrder {
		if remOld[id] {
			unmatchedOld = append(unmatchedOld, id)
		}
	}
	for _, id := range newOrder {
		if remNew[id] {
			unmatchedNew = append(unmatchedNew, id)
		}
	}
	stats.UnmatchedOld = len(unmatchedOld)
	stats.UnmatchedNew = len(unmatchedNew)

	return &Result{
		Matches:      matches,
		UnmatchedOld: unmatchedOld,
		UnmatchedNew: unmatchedNew,
		Stats:        stats,
	}, nil
}

func sortedIDs(s *model.NormalizedSbom) []model.ComponentID {
	ids := make([]model.ComponentID, 0, len(s.Components))
	for id := range s.Components {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ci, cj := s.Components[ids[i]], s.Components[ids[j]]
		if k1, k2 := model.CanonicalKey(*ci), model.CanonicalKey(*cj); k1 != k2 {
			return k1 < k2
		}
		return ids[i] < ids[j]
	})
	return ids
}

func trimLeadingV(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "v") || strings.HasPrefix(v, "V") {
		return v[1:]
	}
	return v
}

// runExactTier indexes new's still-unmatched components by keyFn and pairs
// each still-unmatched old component, in oldOrder, with the lowest-
// ComponentID candidate sharing its key. A tier that can't build its index
// for a component (malformed data) is simply skipped for that component;
// malformed identifiers never abort a run.
func runExactTier(
	tier model.MatchTier,
	oldOrder []model.ComponentID,
	old, new *model.NormalizedSbom,
	remOld, remNew map[model.ComponentID]bool,
	matches *[]model.Match,
	stats *model.MatchStats,
	sink diag.Sink,
	keyFn func(*model.Component) (string, bool),
) {
	index := make(map[string][]model.ComponentID)
	for id, ok := range remNew {
		if !ok {
			continue
		}
		if k, ok := keyFn(new.Components[id]); ok {
			index[k] = append(index[k], id)
		}
	}
	for k := range index {
		sort.Slice(index[k], func(i, j int) bool { return index[k][i] < index[k][j] })
	}

	for _, oid := range oldOrder {
		if !remOld[oid] {
			continue
		}
		k, ok := keyFn(old.Components[oid])
		if !ok {
			continue
		}
		for _, nid := range index[k] {
			if !remNew[nid] {
				continue
			}
			*matches = append(*matches, model.Match{
				Old: oid, New: nid,
				Confidence: model.TierConfidence[tier],
				Reason:     model.MatchReason{Tier: tier},
			})
			stats.Record(tier)
			remOld[oid] = false
			remNew[nid] = false
			break
		}
	}
}

// runHashTier pairs components sharing any (algorithm, value) hash. Hash
// values are compared case-insensitively (hex digests), algorithms
// case-sensitively.
func runHashTier(
	oldOrder []model.ComponentID,
	old, new *model.NormalizedSbom,
	remOld, remNew map[model.ComponentID]bool,
	matches *[]model.Match,
	stats *model.MatchStats,
) {
	index := make(map[string][]model.ComponentID)
	for id, ok := range remNew {
		if !ok {
			continue
		}
		for _, h := range new.Components[id].Hashes {
			k := h.Algorithm + ":" + strings.ToLower(h.Value)
			index[k] = append(index[k], id)
		}
	}
	for k := range index {
		sort.Slice(index[k], func(i, j int) bool { return index[k][i] < index[k][j] })
	}

	for _, oid := range oldOrder {
		if !remOld[oid] {
			continue
		}
		c := old.Components[oid]
		var chosen model.ComponentID
		found := false
	hashes:
		for _, h := range c.Hashes {
			k := h.Algorithm + ":" + strings.ToLower(h.Value)
			for _, nid := range index[k] {
				if remNew[nid] {
					chosen, found = nid, true
					break hashes
				}
			}
		}
		if !found {
			continue
		}
		*matches = append(*matches, model.Match{
			Old: oid, New: chosen,
			Confidence: model.TierConfidence[model.TierHash],
			Reason:     model.MatchReason{Tier: model.TierHash},
		})
		stats.Record(model.TierHash)
		remOld[oid] = false
		remNew[chosen] = false
	}
}

// proposal is a candidate fuzzy pairing awaiting the global greedy
// assignment pass.
type proposal struct {
	old, new model.ComponentID
	score    float64
}

// runFuzzyTier runs the last-resort similarity tier: candidate generation
// (direct cross product below lsh_threshold, LSH above it), concurrent
// scoring, and a deterministic greedy assignment in descending score order
// with the old component's canonical key as the stable secondary key, so
// reassembly order never depends on goroutine scheduling.
func runFuzzyTier(
	ctx context.Context,
	oldOrder []model.ComponentID,
	old, new *model.NormalizedSbom,
	remOld, remNew map[model.ComponentID]bool,
	cfg model.DiffConfig,
	matches *[]model.Match,
	stats *model.MatchStats,
	sink diag.Sink,
) error {
	var unmatchedOld, unmatchedNew []model.ComponentID
	for _, id := range oldOrder {
		if remOld[id] {
			unmatchedOld = append(unmatchedOld, id)
		}
	}
	for id, ok := range remNew {
		if ok {
			unmatchedNew = append(unmatchedNew, id)
		}
	}
	if len(unmatchedOld) == 0 || len(unmatchedNew) == 0 {
		return nil
	}
	sort.Slice(unmatchedNew, func(i, j int) bool { return unmatchedNew[i] < unmatchedNew[j] })

	useLSH := len(old.Components)*len(new.Components) >= cfg.LSHThreshold
	var index *lsh.Index
	if useLSH {
		index = lsh.NewIndex(cfg.LSHBands, cfg.LSHRows)
		for i, id := range unmatchedNew {
			index.Add(i, componentSignature(new.Components[id]))
		}
	}

	proposals := make([]proposal, len(unmatchedOld))
	resourceErr := make([]error, len(unmatchedOld))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, oid := range unmatchedOld {
		i, oid := i, oid
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return ErrCancelled
			default:
			}
			a := old.Components[oid]

			var candidates []model.ComponentID
			if useLSH {
				sigA := componentSignature(a)
				idxs := index.Candidates(sigA, cfg.MaxCandidates)
				candidates = make([]model.ComponentID, len(idxs))
				for k, j := range idxs {
					candidates[k] = unmatchedNew[j]
				}
			} else {
				candidates = unmatchedNew
			}
			if len(candidates) > absoluteCandidateCeiling {
				resourceErr[i] = &ResourceLimitError{Component: oid}
				return nil
			}

			best, second := -1.0, -1.0
			var bestID model.ComponentID
			for _, nid := range candidates {
				b := new.Components[nid]
				s := score(a, b, cfg.ScoreWeights)
				if s > best {
					second = best
					best, bestID = s, nid
				} else if s > second {
					second = s
				}
			}
			if best >= cfg.FuzzyThreshold && (second < 0 || best-second >= cfg.FuzzyMargin) {
				proposals[i] = proposal{old: oid, new: bestID, score: best}
			} else {
				proposals[i] = proposal{old: oid, new: "", score: -1}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrCancelled) || errors.Is(ctx.Err(), context.Canceled) {
			return ErrCancelled
		}
		return err
	}
	for i, rid := range unmatchedOld {
		if resourceErr[i] != nil {
			sink.Warn(diag.Warning{Level: diag.LevelWarn, Code: "matcher.resource_limit",
				Message: "candidate set exceeded ceiling, skipping fuzzy tier for component",
				Fields:  map[string]any{"component": string(rid)}})
		}
	}

	live := proposals[:0]
	for _, p := range proposals {
		if p.new != "" {
			live = append(live, p)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].score != live[j].score {
			return live[i].score > live[j].score
		}
		ki := model.CanonicalKey(*old.Components[live[i].old])
		kj := model.CanonicalKey(*old.Components[live[j].old])
		if ki != kj {
			return ki < kj
		}
		return live[i].old < live[j].old
	})

	for _, p := range live {
		if !remOld[p.old] || !remNew[p.new] {
			continue
		}
		// Fuzzy confidence never reaches the hash tier's fixed 0.85; the
		// raw score is still reported in the reason.
		confidence := p.score
		if confidence > maxFuzzyConfidence {
			confidence = maxFuzzyConfidence
		}
		*matches = append(*matches, model.Match{
			Old: p.old, New: p.new,
			Confidence: confidence,
			Reason:     model.MatchReason{Tier: model.TierFuzzy, FuzzyScore: p.score},
		})
		stats.Record(model.TierFuzzy)
		remOld[p.old] = false
		remNew[p.new] = false
	}
	return nil
}

// componentSignature builds the MinHash signature for a.
func componentSignature(a *model.Component) lsh.Signature {
	s := lsh.Canonicalize(a.Name, a.Version, resolveEcosystem(a), purlPath(a.Identifiers.Purl))
	return lsh.Sign(s)
}
