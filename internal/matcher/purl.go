package matcher

import (
	"sort"
	"strings"

	"github.com/package-url/packageurl-go"
)

// purlType returns the "type" segment of a PURL, or "" if it doesn't parse
// or the type segment is itself empty. This backs the ecosystem-agreement
// score term's fallback when a Component carries a PURL but no explicit
// Ecosystem.
func purlType(purl string) string {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return ""
	}
	return p.Type
}

// CanonicalPurlKey returns a stable index key honoring the PURL case
// rules: case-sensitive type/namespace/name, case-insensitive
// version/qualifiers/subpath. The second return is false if purl does not
// parse.
func CanonicalPurlKey(purl string) (string, bool) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return "", false
	}
	qm := p.Qualifiers.Map()
	keys := make([]string, 0, len(qm))
	for k := range qm {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(p.Type)
	b.WriteByte('|')
	b.WriteString(p.Namespace)
	b.WriteByte('|')
	b.WriteString(p.Name)
	b.WriteByte('|')
	b.WriteString(strings.ToLower(p.Version))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(p.Subpath))
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(strings.ToLower(k))
		b.WriteByte('=')
		b.WriteString(strings.ToLower(qm[k]))
	}
	return b.String(), true
}

// purlPath returns a stable "namespace/name" string used as one of the
// MinHash shingle inputs.
func purlPath(purl string) string {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return ""
	}
	if p.Namespace == "" {
		return p.Name
	}
	return p.Namespace + "/" + p.Name
}
