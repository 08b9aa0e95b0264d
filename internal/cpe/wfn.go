// Package cpe parses CPE 2.3 formatted strings into well-formed names
// (WFNs) for stable, case-normalized comparison.
//
// Only what the matcher needs is implemented: parsing a formatted string
// into its eleven attributes, equality, and a canonical index key. The
// full CPE matching relation (superset/subset over the ANY/NA lattice) is
// out of scope here.
package cpe

import (
	"fmt"
	"strings"
)

// Attribute indexes a WFN's eleven-component attribute array.
type Attribute int

// Recognized CPE 2.3 attributes, in formatted-string order.
const (
	Part Attribute = iota
	Vendor
	Product
	Version
	Update
	Edition
	Language
	SwEdition
	TargetSW
	TargetHW
	Other
	NumAttr
)

// ValueKind discriminates the three special CPE values (ANY, NA, unset)
// from a literal string value.
type ValueKind uint8

// Recognized value kinds.
const (
	ValueUnset ValueKind = iota
	ValueAny
	ValueNA
	ValueSet
)

// Value is a single WFN attribute value.
type Value struct {
	Kind ValueKind
	V    string
}

// WFN is a parsed, well-formed CPE name.
type WFN struct {
	Attr [NumAttr]Value
}

const cpe23Prefix = `cpe:2.3:`

// Unbind parses a CPE 2.3 formatted string into a WFN.
func Unbind(s string) (WFN, error) {
	var r WFN
	if !strings.HasPrefix(s, cpe23Prefix) {
		return r, fmt.Errorf("cpe: not a CPE 2.3 formatted string: %q", s)
	}
	fs := splitFS(s)
	if len(fs) != int(NumAttr)+2 {
		return r, fmt.Errorf("cpe: wrong number of components (%d): %q", len(fs), s)
	}
	for i, c := range fs[2:] {
		r.Attr[i] = unbindValue(strings.ToLower(c))
	}
	return r, nil
}

func unbindValue(s string) Value {
	switch s {
	case "", "*":
		return Value{Kind: ValueAny}
	case "-":
		return Value{Kind: ValueNA}
	default:
		return Value{Kind: ValueSet, V: s}
	}
}

// splitFS splits a CPE formatted string on unescaped colons.
func splitFS(s string) []string {
	var fs []string
	prev, esc := 0, false
	for i, r := range s {
		switch {
		case esc:
			esc = false
		case r == '\\':
			esc = true
		case r == ':':
			fs = append(fs, s[prev:i])
			prev = i + 1
		}
	}
	fs = append(fs, s[prev:])
	return fs
}

// Equal reports whether two WFNs describe the same product: every
// attribute must be literally equal, or both must be ANY/unset.
func Equal(a, b WFN) bool {
	for i := 0; i < int(NumAttr); i++ {
		av, bv := a.Attr[i], b.Attr[i]
		if av.Kind != bv.Kind {
			if isWildcard(av.Kind) && isWildcard(bv.Kind) {
				continue
			}
			return false
		}
		if av.Kind == ValueSet && av.V != bv.V {
			return false
		}
	}
	return true
}

func isWildcard(k ValueKind) bool { return k == ValueAny || k == ValueUnset }

// EqualStrings parses both strings as CPE 2.3 formatted names and reports
// whether they're equal. Malformed strings are never equal to anything,
// including themselves.
func EqualStrings(a, b string) bool {
	wa, err := Unbind(a)
	if err != nil {
		return false
	}
	wb, err := Unbind(b)
	if err != nil {
		return false
	}
	return Equal(wa, wb)
}

// Canonical returns a stable, comparable string for s suitable for use as an
// index key: the eleven attributes rejoined in order, each lowercased and
// ANY/unset normalized to "*". The second return is false if s does not
// parse as a CPE 2.3 formatted string.
func Canonical(s string) (string, bool) {
	w, err := Unbind(s)
	if err != nil {
		return "", false
	}
	parts := make([]string, NumAttr)
	for i, v := range w.Attr {
		switch v.Kind {
		case ValueSet:
			parts[i] = v.V
		case ValueNA:
			parts[i] = "-"
		default:
			parts[i] = "*"
		}
	}
	return strings.Join(parts, ":"), true
}
