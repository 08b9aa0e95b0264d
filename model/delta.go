package model

// VersionBump classifies how a matched pair's version changed. Callers
// should compare by value; the constants carry no ordering.
type VersionBump string

// Recognized version bump kinds.
const (
	VersionBumpNone       VersionBump = "none"
	VersionBumpMajor      VersionBump = "major"
	VersionBumpMinor      VersionBump = "minor"
	VersionBumpPatch      VersionBump = "patch"
	VersionBumpPreRelease VersionBump = "pre_release"
	VersionBumpBuild      VersionBump = "build"
	VersionBumpDowngrade  VersionBump = "downgrade"
	VersionBumpUnknown    VersionBump = "unknown"
)

// FieldChange is a single old→new value change, rendered as strings so the
// delta can carry heterogeneous field types uniformly.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old,omitempty"`
	New   string `json:"new,omitempty"`
}

// VulnTransition describes a vulnerability persisting on a matched pair
// whose severity or VEX status changed between documents.
type VulnTransition struct {
	Key             VulnKey   `json:"key"`
	OldSeverity     Severity  `json:"old_severity,omitempty"`
	NewSeverity     Severity  `json:"new_severity,omitempty"`
	SeverityChanged bool      `json:"severity_changed,omitempty"`
	OldVexStatus    VexStatus `json:"old_vex_status,omitempty"`
	NewVexStatus    VexStatus `json:"new_vex_status,omitempty"`
	VexChanged      bool      `json:"vex_changed,omitempty"`
}

// ComponentDelta is the field-level result of diffing one matched pair.
type ComponentDelta struct {
	Old ComponentID `json:"old"`
	New ComponentID `json:"new"`

	Match MatchReason `json:"match"`

	Modified bool `json:"modified"`

	Fields []FieldChange `json:"fields,omitempty"`

	VersionBump VersionBump `json:"version_bump,omitempty"`

	IntroducedVulns []VulnerabilityRef `json:"introduced_vulns,omitempty"`
	FixedVulns      []VulnerabilityRef `json:"fixed_vulns,omitempty"`
	PersistingVulns []VulnTransition   `json:"persisting_vulns,omitempty"`

	LicensesAdded   []License `json:"licenses_added,omitempty"`
	LicensesRemoved []License `json:"licenses_removed,omitempty"`

	HashesAdded   []Hash `json:"hashes_added,omitempty"`
	HashesRemoved []Hash `json:"hashes_removed,omitempty"`

	SupplierChanged bool `json:"supplier_changed,omitempty"`
}

// Added is a component present only in the new SBOM.
type Added struct {
	Component Component `json:"component"`
}

// Removed is a component present only in the old SBOM.
type Removed struct {
	Component Component `json:"component"`
}
