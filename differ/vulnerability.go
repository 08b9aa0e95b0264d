package differ

import (
	"sort"

	"github.com/quay/sbomdiff/model"
)

// Vulnerabilities runs the vulnerability differ over the full matcher
// result: for each matched pair it tracks
// introduced/fixed/persisting by (id,source); for unmatched components, all
// of a removed component's vulnerabilities flow into fixed and all of an
// added component's flow into introduced.
func Vulnerabilities(
	old, new *model.NormalizedSbom,
	matches []model.Match,
	unmatchedOld, unmatchedNew []model.ComponentID,
) model.Vulnerabilities {
	var out model.Vulnerabilities

	for _, id := range unmatchedNew {
		out.Introduced = append(out.Introduced, new.Components[id].Vulnerabilities...)
	}
	for _, id := range unmatchedOld {
		out.Fixed = append(out.Fixed, old.Components[id].Vulnerabilities...)
	}
	for _, m := range matches {
		a, b := old.Components[m.Old], new.Components[m.New]
		introduced, fixed, persisting := vulnerabilityDelta(a, b)
		out.Introduced = append(out.Introduced, introduced...)
		out.Fixed = append(out.Fixed, fixed...)
		out.Persisting = append(out.Persisting, persisting...)
	}

	sort.Slice(out.Introduced, func(i, j int) bool { return vulnLess(out.Introduced[i], out.Introduced[j]) })
	sort.Slice(out.Fixed, func(i, j int) bool { return vulnLess(out.Fixed[i], out.Fixed[j]) })
	sort.Slice(out.Persisting, func(i, j int) bool {
		a, b := out.Persisting[i].Key, out.Persisting[j].Key
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ID < b.ID
	})
	return out
}

func vulnLess(a, b model.VulnerabilityRef) bool {
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	return a.ID < b.ID
}

// vulnerabilityDelta computes the per-pair introduced/fixed/persisting
// streams by (id,source) identity.
func vulnerabilityDelta(a, b *model.Component) (introduced, fixed []model.VulnerabilityRef, persisting []model.VulnTransition) {
	oldMap := vulnMap(a.Vulnerabilities)
	newMap := vulnMap(b.Vulnerabilities)

	for k, v := range newMap {
		if _, ok := oldMap[k]; !ok {
			introduced = append(introduced, v)
		}
	}
	for k, v := range oldMap {
		if _, ok := newMap[k]; !ok {
			fixed = append(fixed, v)
		}
	}
	for k, nv := range newMap {
		ov, ok := oldMap[k]
		if !ok {
			continue
		}
		sevChanged := ov.Severity != nv.Severity
		vexChanged := ov.VexStatus != nv.VexStatus
		if sevChanged || vexChanged {
			persisting = append(persisting, model.VulnTransition{
				Key:             k,
				OldSeverity:     ov.Severity,
				NewSeverity:     nv.Severity,
				SeverityChanged: sevChanged,
				OldVexStatus:    ov.VexStatus,
				NewVexStatus:    nv.VexStatus,
				VexChanged:      vexChanged,
			})
		}
	}

	sort.Slice(introduced, func(i, j int) bool { return vulnLess(introduced[i], introduced[j]) })
	sort.Slice(fixed, func(i, j int) bool { return vulnLess(fixed[i], fixed[j]) })
	sort.Slice(persisting, func(i, j int) bool {
		if persisting[i].Key.Source != persisting[j].Key.Source {
			return persisting[i].Key.Source < persisting[j].Key.Source
		}
		return persisting[i].Key.ID < persisting[j].Key.ID
	})
	return introduced, fixed, persisting
}

func vulnMap(vs []model.VulnerabilityRef) map[model.VulnKey]model.VulnerabilityRef {
	m := make(map[model.VulnKey]model.VulnerabilityRef, len(vs))
	for _, v := range vs {
		m[v.Key()] = v
	}
	return m
}
