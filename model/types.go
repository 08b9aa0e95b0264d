// Package model defines the normalized SBOM shape the diff engine consumes.
//
// Everything here is produced by a format parser (CycloneDX, SPDX, ...)
// upstream of this repository; the model package only describes the shape
// and the handful of derived values (fingerprints) the differ needs. It
// does not parse any wire format itself.
package model

import "time"

// ComponentID identifies a Component within a single NormalizedSbom. It has
// no meaning across documents; cross-document identity is the matcher's job.
type ComponentID string

// ComponentType enumerates the component kinds carried by both CycloneDX and
// SPDX, collapsed to a single vocabulary.
type ComponentType string

// Recognized component types.
const (
	TypeApplication     ComponentType = "application"
	TypeLibrary         ComponentType = "library"
	TypeFramework       ComponentType = "framework"
	TypeContainer       ComponentType = "container"
	TypeOperatingSystem ComponentType = "operating-system"
	TypeDevice          ComponentType = "device"
	TypeFile            ComponentType = "file"
	TypeFirmware        ComponentType = "firmware"
	TypeOther           ComponentType = "other"
)

// Identifiers holds the cross-document identity candidates for a Component.
// Any field may be empty; the matcher must tolerate that and fall through to
// the next tier.
type Identifiers struct {
	Purl   string `json:"purl,omitempty"`
	CPE    string `json:"cpe,omitempty"`
	SWID   string `json:"swid,omitempty"`
	BomRef string `json:"bom_ref,omitempty"`
}

// Hash is a named checksum over a component's artifact.
type Hash struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// License is a single license entry, either an SPDX ID or a free-form
// expression/name.
type License struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	Expression string `json:"expression,omitempty"`
}

// Supplier identifies the organization or individual that supplied a
// component.
type Supplier struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// VexStatus is a VEX status assertion attached to a vulnerability reference.
type VexStatus string

// Recognized VEX statuses.
const (
	VexNotAffected        VexStatus = "not_affected"
	VexFixed              VexStatus = "fixed"
	VexAffected           VexStatus = "affected"
	VexUnderInvestigation VexStatus = "under_investigation"
)

// CVSS is a single scoring vector attached to a vulnerability reference.
type CVSS struct {
	Version string  `json:"version"`
	Vector  string  `json:"vector,omitempty"`
	Score   float64 `json:"score"`
}

// Severity is a normalized severity rank, ordered low to high so callers can
// compare with plain operators.
type Severity uint8

// Recognized severities, ordered.
const (
	SeverityUnknown Severity = iota
	SeverityNone
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityName = [...]string{"unknown", "none", "low", "medium", "high", "critical"}

// String implements fmt.Stringer.
func (s Severity) String() string {
	if int(s) >= len(severityName) {
		return "unknown"
	}
	return severityName[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	name := string(b)
	for i, n := range severityName {
		if n == name {
			*s = Severity(i)
			return nil
		}
	}
	*s = SeverityUnknown
	return nil
}

// VulnKey is the cross-document identity of a vulnerability reference.
type VulnKey struct {
	ID     string
	Source string
}

// VulnerabilityRef is a single vulnerability assertion attached to a
// Component.
type VulnerabilityRef struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Severity  Severity  `json:"severity,omitempty"`
	CVSS      []CVSS    `json:"cvss,omitempty"`
	VexStatus VexStatus `json:"vex_status,omitempty"`
	KEV       bool      `json:"kev,omitempty"`
}

// Key returns the VulnerabilityRef's cross-document identity.
func (v VulnerabilityRef) Key() VulnKey { return VulnKey{ID: v.ID, Source: v.Source} }

// ExternalRef is a free-form reference to external material about a
// component (advisory, website, VCS, ...). It never participates in
// matching or diffing; it rides along for report renderers.
type ExternalRef struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Component is a single inventoried piece of software.
type Component struct {
	ID              ComponentID        `json:"id"`
	Name            string             `json:"name"`
	Version         string             `json:"version,omitempty"`
	Type            ComponentType      `json:"type,omitempty"`
	Ecosystem       string             `json:"ecosystem,omitempty"`
	Identifiers     Identifiers        `json:"identifiers"`
	Hashes          []Hash             `json:"hashes,omitempty"`
	Supplier        Supplier           `json:"supplier,omitempty"`
	Licenses        []License          `json:"licenses,omitempty"`
	Vulnerabilities []VulnerabilityRef `json:"vulnerabilities,omitempty"`
	ExternalRefs    []ExternalRef      `json:"external_refs,omitempty"`

	// Description and Author are metadata noise: the component differ must
	// not classify a change here as Modified on its own.
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
}

// DependencyType enumerates the relationship an edge represents.
type DependencyType string

// Recognized dependency relationship kinds.
const (
	DependencyRuntime  DependencyType = "runtime"
	DependencyDev      DependencyType = "dev"
	DependencyBuild    DependencyType = "build"
	DependencyTest     DependencyType = "test"
	DependencyOptional DependencyType = "optional"
	DependencyProvided DependencyType = "provided"
	DependencyContains DependencyType = "contains"
	DependencyStatic   DependencyType = "static"
	DependencyDynamic  DependencyType = "dynamic"
	DependencyOther    DependencyType = "other"
)

// DependencyEdge is a directed edge in the dependency graph: From depends on
// To via Relationship.
type DependencyEdge struct {
	From         ComponentID    `json:"from"`
	To           ComponentID    `json:"to"`
	Relationship DependencyType `json:"relationship,omitempty"`
}

// Format identifies the originating SBOM document's wire format. It is
// metadata only; the core never branches on it except to decide whether a
// bom-ref tier may apply (CycloneDX-to-CycloneDX only).
type Format string

// Recognized source formats.
const (
	FormatCycloneDX Format = "cyclonedx"
	FormatSPDX      Format = "spdx"
	FormatUnknown   Format = ""
)

// Metadata is document-level information that rides along with a
// NormalizedSbom but never participates in matching, diffing, or content
// hashing.
type Metadata struct {
	Format      Format    `json:"format,omitempty"`
	SpecVersion string    `json:"spec_version,omitempty"`
	Serial      string    `json:"serial,omitempty"`
	Creator     string    `json:"creator,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
}

// NormalizedSbom is the input the diff engine operates on. It is built by a
// format parser and is treated as immutable for the duration of a diff call.
type NormalizedSbom struct {
	Metadata           Metadata                   `json:"metadata"`
	Components         map[ComponentID]*Component `json:"components"`
	Edges              []DependencyEdge           `json:"edges"`
	PrimaryComponentID ComponentID                `json:"primary_component_id,omitempty"`
}

// Component looks up a component by ID, returning nil if absent.
func (s *NormalizedSbom) Component(id ComponentID) *Component {
	if s == nil {
		return nil
	}
	return s.Components[id]
}
