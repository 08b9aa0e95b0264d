package model

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ComponentFingerprint is a stable hash over a canonical subset of a
// Component's fields: PURL, CPE, SWID, name, version,
// ecosystem, sorted hashes, sorted vulnerability IDs. Two components with
// identical values for those fields produce the same fingerprint regardless
// of slice ordering or the presence of metadata noise (description, author).
type ComponentFingerprint uint64

// Fingerprint computes the Component's ComponentFingerprint. It allocates no
// more than the sort of the hash and vulnerability slices requires and does
// not mutate the receiver.
func (c *Component) Fingerprint() ComponentFingerprint {
	h := xxhash.New()
	writeField(h, c.Identifiers.Purl)
	writeField(h, c.Identifiers.CPE)
	writeField(h, c.Identifiers.SWID)
	writeField(h, c.Name)
	writeField(h, c.Version)
	writeField(h, c.Ecosystem)

	hashes := make([]string, len(c.Hashes))
	for i, hh := range c.Hashes {
		hashes[i] = hh.Algorithm + ":" + hh.Value
	}
	sort.Strings(hashes)
	writeField(h, strconv.Itoa(len(hashes)))
	for _, v := range hashes {
		writeField(h, v)
	}

	vulns := make([]string, len(c.Vulnerabilities))
	for i, v := range c.Vulnerabilities {
		vulns[i] = v.Source + ":" + v.ID
	}
	sort.Strings(vulns)
	writeField(h, strconv.Itoa(len(vulns)))
	for _, v := range vulns {
		writeField(h, v)
	}

	return ComponentFingerprint(h.Sum64())
}

// writeField writes a length-prefixed field into h so that concatenation
// ambiguity (e.g. "ab"+"c" vs "a"+"bc") can never collide two distinct field
// tuples onto the same byte stream.
func writeField(h *xxhash.Digest, s string) {
	var lenbuf [8]byte
	n := uint64(len(s))
	for i := range lenbuf {
		lenbuf[i] = byte(n >> (8 * i))
	}
	h.Write(lenbuf[:])
	h.Write([]byte(s))
}
