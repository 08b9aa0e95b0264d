package differ

import (
	"testing"

	"github.com/quay/sbomdiff/model"
)

// A vulnerability appearing on a matched pair is introduced, not an
// added component.
func TestVulnerabilitiesIntroducedOnMatchedPair(t *testing.T) {
	a := model.Component{ID: "a1", Name: "foo", Version: "1.0.0"}
	b := model.Component{ID: "b1", Name: "foo", Version: "1.0.0",
		Vulnerabilities: []model.VulnerabilityRef{{ID: "CVE-2024-0001", Source: "nvd", Severity: model.SeverityHigh}}}
	old := newSbom(a)
	new := newSbom(b)
	match := model.Match{Old: "a1", New: "b1"}

	out := Vulnerabilities(old, new, []model.Match{match}, nil, nil)
	if len(out.Introduced) != 1 || out.Introduced[0].ID != "CVE-2024-0001" {
		t.Fatalf("expected one introduced vuln, got %+v", out.Introduced)
	}
	if len(out.Fixed) != 0 {
		t.Errorf("expected no fixed vulns, got %+v", out.Fixed)
	}
}

func TestVulnerabilitiesFixedOnMatchedPair(t *testing.T) {
	a := model.Component{ID: "a1", Name: "foo", Version: "1.0.0",
		Vulnerabilities: []model.VulnerabilityRef{{ID: "CVE-2024-0001", Source: "nvd"}}}
	b := model.Component{ID: "b1", Name: "foo", Version: "1.0.1"}
	old := newSbom(a)
	new := newSbom(b)
	match := model.Match{Old: "a1", New: "b1"}

	out := Vulnerabilities(old, new, []model.Match{match}, nil, nil)
	if len(out.Fixed) != 1 || out.Fixed[0].ID != "CVE-2024-0001" {
		t.Fatalf("expected one fixed vuln, got %+v", out.Fixed)
	}
}

func TestVulnerabilitiesPersistingSeverityAndVexTransitions(t *testing.T) {
	a := model.Component{ID: "a1", Name: "foo", Version: "1.0.0",
		Vulnerabilities: []model.VulnerabilityRef{
			{ID: "CVE-1", Source: "nvd", Severity: model.SeverityMedium, VexStatus: model.VexAffected},
		}}
	b := model.Component{ID: "b1", Name: "foo", Version: "1.0.0",
		Vulnerabilities: []model.VulnerabilityRef{
			{ID: "CVE-1", Source: "nvd", Severity: model.SeverityHigh, VexStatus: model.VexFixed},
		}}
	old := newSbom(a)
	new := newSbom(b)
	match := model.Match{Old: "a1", New: "b1"}

	out := Vulnerabilities(old, new, []model.Match{match}, nil, nil)
	if len(out.Introduced) != 0 || len(out.Fixed) != 0 {
		t.Fatalf("same vuln id/source persisting should not appear in introduced/fixed, got intro=%+v fixed=%+v",
			out.Introduced, out.Fixed)
	}
	if len(out.Persisting) != 1 {
		t.Fatalf("expected one persisting transition, got %+v", out.Persisting)
	}
	tr := out.Persisting[0]
	if !tr.SeverityChanged || tr.NewSeverity != model.SeverityHigh {
		t.Errorf("expected severity transition to High, got %+v", tr)
	}
	if !tr.VexChanged || tr.NewVexStatus != model.VexFixed {
		t.Errorf("expected VEX transition to fixed, got %+v", tr)
	}
}

// Unmatched components: all vulnerabilities on a removed component flow
// into fixed, all on an added component flow into introduced.
func TestVulnerabilitiesUnmatchedComponentsFlow(t *testing.T) {
	removed := model.Component{ID: "a1", Name: "gone", Version: "1.0.0",
		Vulnerabilities: []model.VulnerabilityRef{{ID: "CVE-9", Source: "nvd"}}}
	added := model.Component{ID: "b1", Name: "fresh", Version: "1.0.0",
		Vulnerabilities: []model.VulnerabilityRef{{ID: "CVE-10", Source: "nvd"}}}
	old := newSbom(removed)
	new := newSbom(added)

	out := Vulnerabilities(old, new, nil, []model.ComponentID{"a1"}, []model.ComponentID{"b1"})
	if len(out.Fixed) != 1 || out.Fixed[0].ID != "CVE-9" {
		t.Errorf("expected CVE-9 fixed via removal, got %+v", out.Fixed)
	}
	if len(out.Introduced) != 1 || out.Introduced[0].ID != "CVE-10" {
		t.Errorf("expected CVE-10 introduced via addition, got %+v", out.Introduced)
	}
}

// Symmetry: diffing A against B introduces exactly what diffing B against
// A fixes, and vice versa, for the same matched pair.
func TestVulnerabilitiesSymmetry(t *testing.T) {
	a := model.Component{ID: "a1", Name: "foo", Version: "1.0.0",
		Vulnerabilities: []model.VulnerabilityRef{{ID: "CVE-1", Source: "nvd"}}}
	b := model.Component{ID: "b1", Name: "foo", Version: "1.0.0",
		Vulnerabilities: []model.VulnerabilityRef{{ID: "CVE-2", Source: "nvd"}}}
	sbomA := newSbom(a)
	sbomB := newSbom(b)

	forward := Vulnerabilities(sbomA, sbomB, []model.Match{{Old: "a1", New: "b1"}}, nil, nil)
	backward := Vulnerabilities(sbomB, sbomA, []model.Match{{Old: "b1", New: "a1"}}, nil, nil)

	if len(forward.Introduced) != 1 || forward.Introduced[0].ID != "CVE-2" {
		t.Fatalf("forward introduced mismatch: %+v", forward.Introduced)
	}
	if len(backward.Fixed) != 1 || backward.Fixed[0].ID != "CVE-2" {
		t.Fatalf("backward fixed mismatch: %+v", backward.Fixed)
	}
	if len(forward.Fixed) != 1 || forward.Fixed[0].ID != "CVE-1" {
		t.Fatalf("forward fixed mismatch: %+v", forward.Fixed)
	}
	if len(backward.Introduced) != 1 || backward.Introduced[0].ID != "CVE-1" {
		t.Fatalf("backward introduced mismatch: %+v", backward.Introduced)
	}
}
