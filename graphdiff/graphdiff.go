// Package graphdiff classifies structural changes between two dependency
// graphs (added/removed/reparented/depth-changed edges) with impact
// weighting, using the component matching as the identity bridge.
package graphdiff

import (
	"sort"

	"github.com/quay/sbomdiff/model"
)

type edgeKey struct {
	from, to model.ComponentID
	rel      model.DependencyType
}

// Diff compares old's and new's dependency graphs under the matcher's
// identity bridge and returns the structural changes plus a roll-up
// summary.
func Diff(old, new *model.NormalizedSbom, matches []model.Match) ([]model.GraphChange, model.GraphSummary) {
	oldToNew := make(map[model.ComponentID]model.ComponentID, len(matches))
	for _, m := range matches {
		oldToNew[m.Old] = m.New
	}
	resolveOld := func(id model.ComponentID) model.ComponentID {
		if n, ok := oldToNew[id]; ok {
			return n
		}
		return id
	}

	oldEdges := make(map[edgeKey]bool, len(old.Edges))
	for _, e := range old.Edges {
		oldEdges[edgeKey{resolveOld(e.From), resolveOld(e.To), e.Relationship}] = true
	}
	newEdges := make(map[edgeKey]bool, len(new.Edges))
	for _, e := range new.Edges {
		newEdges[edgeKey{e.From, e.To, e.Relationship}] = true
	}

	// Parent sets per child, canonical identity, ignoring relationship
	// kind: reparent detection operates on the edge shape, not its
	// relationship label.
	oldParents := parentSets(oldEdges)
	newParents := parentSets(newEdges)

	oldRoots := roots(old.Components, oldEdges, resolveOld)
	newRoots := roots(new.Components, newEdges, identity)

	oldRootOf := nearestRoot(oldEdges, oldRoots)
	newRootOf := nearestRoot(newEdges, newRoots)

	oldDepth := bfsDepth(oldEdges, oldRoots)
	newDepth := bfsDepth(newEdges, newRoots)

	var changes []model.GraphChange
	consumedOld := make(map[edgeKey]bool)
	consumedNew := make(map[edgeKey]bool)

	// Reparent detection: a child with exactly one parent on each side,
	// where the parent changed.
	for child, op := range oldParents {
		np, ok := newParents[child]
		if !ok || len(op) != 1 || len(np) != 1 {
			continue
		}
		oldParent, newParent := op[0], np[0]
		if oldParent == newParent {
			continue
		}
		// Only a genuine reparent if the node itself persists across
		// documents, i.e. it's a matched component (its canonical id
		// resolves to something present on both sides). unmatched nodes
		// can't be reparented, only added or removed wholesale.
		if _, ok := new.Components[child]; !ok {
			continue
		}
		impact := reparentImpact(new, child, oldParent, newParent, oldRootOf, newRootOf, newDepth)
		changes = append(changes, model.GraphChange{
			Kind: model.Reparented, Impact: impact,
			Child: child, OldParent: oldParent, NewParent: newParent,
		})
		for k := range oldEdges {
			if k.to == child && k.from == oldParent {
				consumedOld[k] = true
			}
		}
		for k := range newEdges {
			if k.to == child && k.from == newParent {
				consumedNew[k] = true
			}
		}
	}

	for k := range oldEdges {
		if consumedOld[k] || newEdges[k] {
			continue
		}
		changes = append(changes, model.GraphChange{
			Kind: model.DependencyRemoved, Impact: edgeImpact(new, k, oldRoots, newDepth),
			Parent: k.from, Dependency: k.to,
		})
	}
	for k := range newEdges {
		if consumedNew[k] || oldEdges[k] {
			continue
		}
		changes = append(changes, model.GraphChange{
			Kind: model.DependencyAdded, Impact: edgeImpact(new, k, newRoots, newDepth),
			Parent: k.from, Dependency: k.to,
		})
	}

	// Depth changes, restricted to nodes present in both canonical
	// spaces. Depth is the shortest path from any root, minimum over all
	// roots when multiple exist.
	for child, nd := range newDepth {
		if _, ok := new.Components[child]; !ok {
			continue
		}
		od, ok := oldDepth[child]
		if !ok || od == nd {
			continue
		}
		changes = append(changes, model.GraphChange{
			Kind: model.DepthChanged, Impact: depthImpact(nd - od),
			Child: child, OldDepth: od, NewDepth: nd,
		})
	}

	sort.Slice(changes, func(i, j int) bool { return changeKey(changes[i]) < changeKey(changes[j]) })

	var summary model.GraphSummary
	for _, c := range changes {
		summary.Add(c)
	}
	return changes, summary
}

func identity(id model.ComponentID) model.ComponentID { return id }

func changeKey(c model.GraphChange) string {
	return string(c.Kind) + "|" + string(c.Parent) + "|" + string(c.Dependency) + "|" +
		string(c.Child) + "|" + string(c.OldParent) + "|" + string(c.NewParent)
}

func parentSets(edges map[edgeKey]bool) map[model.ComponentID][]model.ComponentID {
	seen := make(map[model.ComponentID]map[model.ComponentID]bool)
	for k := range edges {
		if seen[k.to] == nil {
			seen[k.to] = make(map[model.ComponentID]bool)
		}
		seen[k.to][k.from] = true
	}
	out := make(map[model.ComponentID][]model.ComponentID, len(seen))
	for child, parents := range seen {
		ps := make([]model.ComponentID, 0, len(parents))
		for p := range parents {
			ps = append(ps, p)
		}
		sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
		out[child] = ps
	}
	return out
}

// roots returns every component with in-degree 0 in the given edge set
// (canonical identity), sorted for determinism.
func roots(components map[model.ComponentID]*model.Component, edges map[edgeKey]bool, resolve func(model.ComponentID) model.ComponentID) []model.ComponentID {
	hasParent := make(map[model.ComponentID]bool)
	for k := range edges {
		hasParent[k.to] = true
	}
	var rs []model.ComponentID
	for id := range components {
		if !hasParent[resolve(id)] {
			rs = append(rs, resolve(id))
		}
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })
	return rs
}

// bfsDepth computes, for every node reachable from any root, the minimum
// distance over all roots.
func bfsDepth(edges map[edgeKey]bool, roots []model.ComponentID) map[model.ComponentID]int {
	adj := make(map[model.ComponentID][]model.ComponentID)
	for k := range edges {
		adj[k.from] = append(adj[k.from], k.to)
	}
	depth := make(map[model.ComponentID]int)
	queue := make([]model.ComponentID, 0, len(roots))
	for _, r := range roots {
		if _, ok := depth[r]; !ok {
			depth[r] = 0
			queue = append(queue, r)
		}
	}
	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		for _, next := range adj[cur] {
			if d, ok := depth[next]; !ok || depth[cur]+1 < d {
				depth[next] = depth[cur] + 1
				queue = append(queue, next)
			}
		}
	}
	return depth
}

// nearestRoot assigns every reachable node the lowest-ID root it can reach
// in the fewest hops, used to decide whether a reparent crosses root
// subtrees.
func nearestRoot(edges map[edgeKey]bool, roots []model.ComponentID) map[model.ComponentID]model.ComponentID {
	adj := make(map[model.ComponentID][]model.ComponentID)
	for k := range edges {
		adj[k.from] = append(adj[k.from], k.to)
	}
	owner := make(map[model.ComponentID]model.ComponentID)
	depth := make(map[model.ComponentID]int)
	type qi struct {
		id   model.ComponentID
		root model.ComponentID
	}
	queue := make([]qi, 0, len(roots))
	for _, r := range roots {
		owner[r] = r
		depth[r] = 0
		queue = append(queue, qi{r, r})
	}
	for i := 0; i < len(queue); i++ {
		cur := queue[i]
		for _, next := range adj[cur.id] {
			nd := depth[cur.id] + 1
			if d, ok := depth[next]; !ok || nd < d {
				depth[next] = nd
				owner[next] = cur.root
				queue = append(queue, qi{next, cur.root})
			}
		}
	}
	return owner
}

func depthImpact(delta int) model.Impact {
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta >= 3:
		return model.ImpactHigh
	case delta >= 1:
		return model.ImpactMedium
	default:
		return model.ImpactLow
	}
}

func reparentImpact(new *model.NormalizedSbom, child, oldParent, newParent model.ComponentID, oldRootOf, newRootOf map[model.ComponentID]model.ComponentID, newDepth map[model.ComponentID]int) model.Impact {
	if kevOrRootCritical(new, child, newDepth) {
		return model.ImpactCritical
	}
	if oldRootOf[oldParent] != "" && newRootOf[newParent] != "" && oldRootOf[oldParent] != newRootOf[newParent] {
		return model.ImpactHigh
	}
	return model.ImpactMedium
}

func edgeImpact(new *model.NormalizedSbom, k edgeKey, roots []model.ComponentID, depth map[model.ComponentID]int) model.Impact {
	if kevOrRootCritical(new, k.to, depth) {
		return model.ImpactCritical
	}
	for _, r := range roots {
		if k.from == r {
			return model.ImpactMedium
		}
	}
	if d, ok := depth[k.to]; ok {
		return depthImpact(d)
	}
	return model.ImpactLow
}

// kevOrRootCritical decides the Critical impact class: the child carries
// a KEV-listed vulnerability, or it's reachable from a root in a single
// hop and carries a Critical-severity vulnerability.
func kevOrRootCritical(new *model.NormalizedSbom, child model.ComponentID, depth map[model.ComponentID]int) bool {
	c := new.Components[child]
	if c == nil {
		return false
	}
	for _, v := range c.Vulnerabilities {
		if v.KEV {
			return true
		}
	}
	if d, ok := depth[child]; !ok || d > 1 {
		return false
	}
	for _, v := range c.Vulnerabilities {
		if v.Severity == model.SeverityCritical {
			return true
		}
	}
	return false
}
