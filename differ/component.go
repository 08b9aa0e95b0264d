// Package differ computes component-level and vulnerability-level deltas
// over a matching: field changes for matched pairs, Added/Removed records
// for unmatched components, and per-vulnerability status transitions.
package differ

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver"

	"github.com/quay/sbomdiff/internal/matcher"
	"github.com/quay/sbomdiff/model"
)

// Components runs the component differ over a matching, producing the
// added/removed/modified streams.
func Components(
	old, new *model.NormalizedSbom,
	matches []model.Match,
	unmatchedOld, unmatchedNew []model.ComponentID,
	cfg model.DiffConfig,
) model.Components {
	out := model.Components{
		Added:    make([]model.Added, 0, len(unmatchedNew)),
		Removed:  make([]model.Removed, 0, len(unmatchedOld)),
		Modified: make([]model.ComponentDelta, 0, len(matches)),
	}
	for _, id := range unmatchedOld {
		out.Removed = append(out.Removed, model.Removed{Component: *old.Components[id]})
	}
	for _, id := range unmatchedNew {
		out.Added = append(out.Added, model.Added{Component: *new.Components[id]})
	}
	for _, m := range matches {
		a, b := old.Components[m.Old], new.Components[m.New]
		delta := diffPair(a, b, m, cfg)
		if cfg.DetectVulnerabilityChanges {
			introduced, fixed, persisting := vulnerabilityDelta(a, b)
			delta.IntroducedVulns = introduced
			delta.FixedVulns = fixed
			delta.PersistingVulns = persisting
			if len(introduced) > 0 || len(fixed) > 0 {
				delta.Modified = true
			}
		}
		// A pair with no recorded change at all stays out of the modified
		// stream entirely; identifier drift (a purl gained or regenerated)
		// is reported there but does not set Modified on its own.
		if delta.Modified || len(delta.Fields) > 0 || len(delta.PersistingVulns) > 0 {
			out.Modified = append(out.Modified, delta)
		}
	}
	return out
}

// diffPair computes the field-level delta for one matched pair, not
// including the vulnerability streams (see vulnerabilityDelta).
func diffPair(a, b *model.Component, m model.Match, cfg model.DiffConfig) model.ComponentDelta {
	d := model.ComponentDelta{Old: a.ID, New: b.ID, Match: m.Reason}

	versionChanged := a.Version != b.Version
	if versionChanged {
		d.Fields = append(d.Fields, model.FieldChange{Field: "version", Old: a.Version, New: b.Version})
		d.VersionBump = classifyVersionBump(a.Version, b.Version)
	} else {
		d.VersionBump = model.VersionBumpNone
	}

	if a.Ecosystem != b.Ecosystem {
		d.Fields = append(d.Fields, model.FieldChange{Field: "ecosystem", Old: a.Ecosystem, New: b.Ecosystem})
	}

	supplierChanged := a.Supplier.Name != b.Supplier.Name
	if supplierChanged {
		d.Fields = append(d.Fields, model.FieldChange{Field: "supplier", Old: a.Supplier.Name, New: b.Supplier.Name})
		d.SupplierChanged = true
	}

	if !purlIdentifierEqual(a, b) {
		d.Fields = append(d.Fields, model.FieldChange{Field: "purl", Old: a.Identifiers.Purl, New: b.Identifiers.Purl})
	}

	hashesAdded, hashesRemoved := diffHashes(a.Hashes, b.Hashes)
	d.HashesAdded, d.HashesRemoved = hashesAdded, hashesRemoved
	hashChanged := len(hashesAdded) > 0 || len(hashesRemoved) > 0

	licAdded, licRemoved := diffLicenses(a.Licenses, b.Licenses)
	d.LicensesAdded, d.LicensesRemoved = licAdded, licRemoved
	licenseChanged := len(licAdded) > 0 || len(licRemoved) > 0

	// Metadata noise (description, author) never counts toward
	// modification.
	d.Modified = versionChanged || hashChanged || licenseChanged || supplierChanged

	return d
}

// purlIdentifierEqual reports whether a and b carry the same PURL under the
// PURL-exact tier's case rules (case-sensitive type/namespace/name,
// case-insensitive version/qualifiers/subpath), falling back to a plain
// string compare when either side fails to parse.
func purlIdentifierEqual(a, b *model.Component) bool {
	if a.Identifiers.Purl == "" && b.Identifiers.Purl == "" {
		return true
	}
	ka, aok := matcher.CanonicalPurlKey(a.Identifiers.Purl)
	kb, bok := matcher.CanonicalPurlKey(b.Identifiers.Purl)
	if aok && bok {
		return ka == kb
	}
	return a.Identifiers.Purl == b.Identifiers.Purl
}

func diffHashes(oldH, newH []model.Hash) (added, removed []model.Hash) {
	oldSet := hashSet(oldH)
	newSet := hashSet(newH)
	for k, h := range newSet {
		if _, ok := oldSet[k]; !ok {
			added = append(added, h)
		}
	}
	for k, h := range oldSet {
		if _, ok := newSet[k]; !ok {
			removed = append(removed, h)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i].Algorithm+added[i].Value < added[j].Algorithm+added[j].Value })
	sort.Slice(removed, func(i, j int) bool {
		return removed[i].Algorithm+removed[i].Value < removed[j].Algorithm+removed[j].Value
	})
	return added, removed
}

func hashSet(hs []model.Hash) map[string]model.Hash {
	out := make(map[string]model.Hash, len(hs))
	for _, h := range hs {
		out[h.Algorithm+":"+strings.ToLower(h.Value)] = h
	}
	return out
}

func diffLicenses(oldL, newL []model.License) (added, removed []model.License) {
	oldSet := licenseSet(oldL)
	newSet := licenseSet(newL)
	for k, l := range newSet {
		if _, ok := oldSet[k]; !ok {
			added = append(added, l)
		}
	}
	for k, l := range oldSet {
		if _, ok := newSet[k]; !ok {
			removed = append(removed, l)
		}
	}
	sort.Slice(added, func(i, j int) bool { return licenseKey(added[i]) < licenseKey(added[j]) })
	sort.Slice(removed, func(i, j int) bool { return licenseKey(removed[i]) < licenseKey(removed[j]) })
	return added, removed
}

func licenseKey(l model.License) string {
	if l.ID != "" {
		return "id:" + l.ID
	}
	if l.Expression != "" {
		return "expr:" + l.Expression
	}
	return "name:" + l.Name
}

func licenseSet(ls []model.License) map[string]model.License {
	out := make(map[string]model.License, len(ls))
	for _, l := range ls {
		out[licenseKey(l)] = l
	}
	return out
}

// classifyVersionBump tags a version change with its bump kind. Downgrade
// takes precedence over the forward-progress kinds, including when only a
// pre-release segment regresses across an otherwise equal
// major/minor/patch triple: semver ordering already treats a pre-release
// as less than its corresponding release, so checking LessThan first
// captures that case without a separate rule.
func classifyVersionBump(oldV, newV string) model.VersionBump {
	if oldV == newV {
		return model.VersionBumpNone
	}
	vo, erro := semver.NewVersion(trimLeadingV(oldV))
	vn, errn := semver.NewVersion(trimLeadingV(newV))
	if erro != nil || errn != nil {
		return model.VersionBumpUnknown
	}
	if vn.LessThan(vo) {
		return model.VersionBumpDowngrade
	}
	switch {
	case vn.Major() != vo.Major():
		return model.VersionBumpMajor
	case vn.Minor() != vo.Minor():
		return model.VersionBumpMinor
	case vn.Patch() != vo.Patch():
		return model.VersionBumpPatch
	case vn.Prerelease() != vo.Prerelease():
		return model.VersionBumpPreRelease
	case vn.Metadata() != vo.Metadata():
		return model.VersionBumpBuild
	default:
		return model.VersionBumpNone
	}
}

func trimLeadingV(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "v") || strings.HasPrefix(v, "V") {
		return v[1:]
	}
	return v
}
