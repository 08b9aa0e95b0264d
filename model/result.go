package model

import "sort"

// Counters summarizes a DiffResult for quick reporting.
type Counters struct {
	ComponentsAdded           int `json:"components_added"`
	ComponentsRemoved         int `json:"components_removed"`
	ComponentsModified        int `json:"components_modified"`
	TotalChanges              int `json:"total_changes"`
	VulnerabilitiesIntroduced int `json:"vulnerabilities_introduced"`
	VulnerabilitiesFixed      int `json:"vulnerabilities_fixed"`
}

// Components groups the component-level diff streams.
type Components struct {
	Added    []Added          `json:"added"`
	Removed  []Removed        `json:"removed"`
	Modified []ComponentDelta `json:"modified"`
}

// Vulnerabilities groups the vulnerability-level diff streams across all
// matched and unmatched components.
type Vulnerabilities struct {
	Introduced []VulnerabilityRef `json:"introduced"`
	Fixed      []VulnerabilityRef `json:"fixed"`
	Persisting []VulnTransition   `json:"persisting"`
}

// DiffResult is the complete output of one diff run.
type DiffResult struct {
	Summary         Counters        `json:"summary"`
	Components      Components      `json:"components"`
	Vulnerabilities Vulnerabilities `json:"vulnerabilities"`
	GraphChanges    []GraphChange   `json:"graph_changes,omitempty"`
	GraphSummary    GraphSummary    `json:"graph_summary"`
	MatchStats      MatchStats      `json:"match_stats"`
}

// CanonicalKey returns the stable sort key for output ordering: PURL,
// then CPE, then name+version. It is also used by the matcher to
// establish a stable processing order over a document's components.
func CanonicalKey(c Component) string {
	switch {
	case c.Identifiers.Purl != "":
		return "0:" + c.Identifiers.Purl
	case c.Identifiers.CPE != "":
		return "1:" + c.Identifiers.CPE
	default:
		return "2:" + c.Name + "@" + c.Version
	}
}

func canonicalKey(c Component) string { return CanonicalKey(c) }

// Sort orders every collection in the result by its canonical key so that
// equal inputs and config always produce a byte-equal serialization.
func (r *DiffResult) Sort() {
	sort.Slice(r.Components.Added, func(i, j int) bool {
		return canonicalKey(r.Components.Added[i].Component) < canonicalKey(r.Components.Added[j].Component)
	})
	sort.Slice(r.Components.Removed, func(i, j int) bool {
		return canonicalKey(r.Components.Removed[i].Component) < canonicalKey(r.Components.Removed[j].Component)
	})
	sort.Slice(r.Components.Modified, func(i, j int) bool {
		return string(r.Components.Modified[i].New) < string(r.Components.Modified[j].New)
	})
	sort.Slice(r.Vulnerabilities.Introduced, func(i, j int) bool {
		return lessVuln(r.Vulnerabilities.Introduced[i], r.Vulnerabilities.Introduced[j])
	})
	sort.Slice(r.Vulnerabilities.Fixed, func(i, j int) bool {
		return lessVuln(r.Vulnerabilities.Fixed[i], r.Vulnerabilities.Fixed[j])
	})
	sort.Slice(r.Vulnerabilities.Persisting, func(i, j int) bool {
		a, b := r.Vulnerabilities.Persisting[i].Key, r.Vulnerabilities.Persisting[j].Key
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ID < b.ID
	})
	sort.Slice(r.GraphChanges, func(i, j int) bool {
		return graphChangeKey(r.GraphChanges[i]) < graphChangeKey(r.GraphChanges[j])
	})
}

func lessVuln(a, b VulnerabilityRef) bool {
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	return a.ID < b.ID
}

func graphChangeKey(c GraphChange) string {
	return string(c.Kind) + "|" + string(c.Parent) + "|" + string(c.Dependency) + "|" +
		string(c.Child) + "|" + string(c.OldParent) + "|" + string(c.NewParent)
}

// Recount recomputes Summary from the current contents of Components and
// Vulnerabilities. Call after mutating the result (e.g. FilterByVEX).
func (r *DiffResult) Recount() {
	r.Summary.ComponentsAdded = len(r.Components.Added)
	r.Summary.ComponentsRemoved = len(r.Components.Removed)
	r.Summary.ComponentsModified = len(r.Components.Modified)
	r.Summary.VulnerabilitiesIntroduced = len(r.Vulnerabilities.Introduced)
	r.Summary.VulnerabilitiesFixed = len(r.Vulnerabilities.Fixed)
	r.Summary.TotalChanges = r.Summary.ComponentsAdded + r.Summary.ComponentsRemoved +
		r.Summary.ComponentsModified + len(r.GraphChanges)
}

// FilterByVEX drops introduced-vulnerability entries whose current VEX
// status is NotAffected or Fixed: a status update arriving alongside a
// match should not be reported as a fresh introduction. It is a pure
// post-processing step and does not touch GraphChanges or MatchStats.
func (r *DiffResult) FilterByVEX() {
	kept := r.Vulnerabilities.Introduced[:0]
	for _, v := range r.Vulnerabilities.Introduced {
		if v.VexStatus == VexNotAffected || v.VexStatus == VexFixed {
			continue
		}
		kept = append(kept, v)
	}
	r.Vulnerabilities.Introduced = kept

	filtered := make([]ComponentDelta, len(r.Components.Modified))
	copy(filtered, r.Components.Modified)
	for i := range filtered {
		in := filtered[i].IntroducedVulns[:0]
		for _, v := range r.Components.Modified[i].IntroducedVulns {
			if v.VexStatus == VexNotAffected || v.VexStatus == VexFixed {
				continue
			}
			in = append(in, v)
		}
		filtered[i].IntroducedVulns = in
	}
	r.Components.Modified = filtered
	r.Recount()
}
