package matcher

import (
	"strings"

	"github.com/Masterminds/semver"
	"github.com/agnivade/levenshtein"
	apkversion "github.com/knqyf263/go-apk-version"
	debversion "github.com/knqyf263/go-deb-version"
	rpmversion "github.com/knqyf263/go-rpm-version"
	"github.com/xrash/smetrics"

	"github.com/quay/sbomdiff/model"
)

// score computes the pair similarity in [0,1] as a weighted sum of name
// similarity, version similarity, ecosystem agreement, supplier agreement,
// and identifier partial overlap. The weights must sum to 1.
func score(a, b *model.Component, w model.ScoreWeights) float64 {
	return w.Name*nameSimilarity(a, b) +
		w.Version*versionSimilarityEco(a, b) +
		w.Ecosystem*ecosystemAgreement(a, b) +
		w.Supplier*supplierAgreement(a, b) +
		w.Identifier*identifierPartial(a, b)
}

// versionSimilarityEco routes the version term to the system-package
// version comparator for the pair's ecosystem (deb, apk, rpm all use
// epoch/revision schemes semver can't parse), falling back to the generic
// semver-or-prefix comparison in versionSimilarity when the ecosystems
// disagree, are unknown, or either side fails to parse under its own
// ecosystem's format.
func versionSimilarityEco(a, b *model.Component) float64 {
	eco := resolveEcosystem(a)
	if eco == "" || eco != resolveEcosystem(b) {
		return versionSimilarity(a.Version, b.Version)
	}
	switch eco {
	case "deb", "debian":
		if s, ok := debVersionSimilarity(a.Version, b.Version); ok {
			return s
		}
	case "apk", "alpine":
		if s, ok := apkVersionSimilarity(a.Version, b.Version); ok {
			return s
		}
	case "rpm", "rhel", "fedora", "centos", "rhcc":
		if s, ok := rpmVersionSimilarity(a.Version, b.Version); ok {
			return s
		}
	}
	return versionSimilarity(a.Version, b.Version)
}

// debVersionSimilarity uses go-deb-version's epoch/upstream/revision-aware
// ordering to decide equality; a non-equal pair still falls back to prefix
// similarity for partial credit, since Debian versions have no semver-style
// major/minor to bucket on.
func debVersionSimilarity(a, b string) (float64, bool) {
	va, erra := debversion.NewVersion(a)
	vb, errb := debversion.NewVersion(b)
	if erra != nil || errb != nil {
		return 0, false
	}
	if !va.LessThan(vb) && !vb.LessThan(va) {
		return 1, true
	}
	return prefixSimilarity(a, b), true
}

// apkVersionSimilarity mirrors debVersionSimilarity for Alpine's apk version
// format.
func apkVersionSimilarity(a, b string) (float64, bool) {
	va, erra := apkversion.NewVersion(a)
	vb, errb := apkversion.NewVersion(b)
	if erra != nil || errb != nil {
		return 0, false
	}
	if !va.LessThan(vb) && !vb.LessThan(va) {
		return 1, true
	}
	return prefixSimilarity(a, b), true
}

// rpmVersionSimilarity mirrors debVersionSimilarity for RPM's
// epoch:version-release format; go-rpm-version.NewVersion never returns an
// error, so both sides always parse.
func rpmVersionSimilarity(a, b string) (float64, bool) {
	va, vb := rpmversion.NewVersion(a), rpmversion.NewVersion(b)
	if va.Compare(vb) == 0 {
		return 1, true
	}
	return prefixSimilarity(a, b), true
}

// nameSimilarity is normalized Levenshtein on lowercased names, with
// scope/namespace stripped contributing 0.7 of the term and the full form
// contributing 0.3, so "@scope/pkg" vs "pkg" still scores high.
func nameSimilarity(a, b *model.Component) float64 {
	an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
	full := normalizedLevenshtein(an, bn)
	stripped := normalizedLevenshtein(stripScope(an), stripScope(bn))
	return 0.7*stripped + 0.3*full
}

// stripScope drops an npm-style "@scope/" (or any "namespace/") prefix,
// leaving the bare package name.
func stripScope(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func normalizedLevenshtein(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if bl := len([]rune(b)); bl > maxLen {
		maxLen = bl
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(d)/float64(maxLen)
}

// versionSimilarity buckets semver-parseable pairs: 1.0 equal, 0.7 same
// major, 0.4 same major+minor group, else 0. Non-semver versions fall back
// to a prefix comparison.
func versionSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		if a == b {
			return 1
		}
		return 0
	}
	if a == b {
		return 1
	}
	va, erra := semver.NewVersion(normalizeVPrefix(a))
	vb, errb := semver.NewVersion(normalizeVPrefix(b))
	if erra != nil || errb != nil {
		return prefixSimilarity(a, b)
	}
	switch {
	case va.Major() == vb.Major() && va.Minor() == vb.Minor() && va.Patch() == vb.Patch():
		return 1
	case va.Major() == vb.Major() && va.Minor() == vb.Minor():
		return 0.4
	case va.Major() == vb.Major():
		return 0.7
	default:
		return 0
	}
}

func normalizeVPrefix(v string) string {
	return strings.TrimPrefix(v, "v")
}

func prefixSimilarity(a, b string) float64 {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return float64(n) / float64(maxLen)
}

// resolveEcosystem returns c's comparable ecosystem string, falling back to
// a PURL's type segment when Ecosystem is unset. A component whose PURL
// type segment is itself empty is treated as ecosystem-less (returns "").
func resolveEcosystem(c *model.Component) string {
	if c.Ecosystem != "" {
		return strings.ToLower(c.Ecosystem)
	}
	if c.Identifiers.Purl == "" {
		return ""
	}
	return strings.ToLower(purlType(c.Identifiers.Purl))
}

func ecosystemAgreement(a, b *model.Component) float64 {
	ea, eb := resolveEcosystem(a), resolveEcosystem(b)
	if ea == "" || eb == "" {
		return 0
	}
	if ea == eb {
		return 1
	}
	return 0
}

func supplierAgreement(a, b *model.Component) float64 {
	sa, sb := strings.TrimSpace(a.Supplier.Name), strings.TrimSpace(b.Supplier.Name)
	if sa == "" || sb == "" {
		return 0
	}
	return smetrics.JaroWinkler(strings.ToLower(sa), strings.ToLower(sb), 0.7, 4)
}

// identifierPartial is the longest-common-substring ratio over whichever of
// purl/cpe/swid both components carry, preferring purl, then cpe, then
// swid.
func identifierPartial(a, b *model.Component) float64 {
	pairs := [][2]string{
		{a.Identifiers.Purl, b.Identifiers.Purl},
		{a.Identifiers.CPE, b.Identifiers.CPE},
		{a.Identifiers.SWID, b.Identifiers.SWID},
	}
	for _, p := range pairs {
		if p[0] != "" && p[1] != "" {
			return lcsRatio(strings.ToLower(p[0]), strings.ToLower(p[1]))
		}
	}
	return 0
}

// lcsRatio computes the longest common substring (contiguous) length
// between a and b, normalized by the longer string's length.
func lcsRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	la, lb := len(a), len(b)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	best := 0
	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best = cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	return float64(best) / float64(maxLen)
}
