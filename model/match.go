package model

import "fmt"

// MatchTier identifies which tiered matching rule accepted a pair.
type MatchTier string

// Recognized match tiers, in the strict priority order the matcher applies
// them.
const (
	TierPurl        MatchTier = "Purl"
	TierCpe         MatchTier = "Cpe"
	TierSwid        MatchTier = "Swid"
	TierBomRef      MatchTier = "BomRef"
	TierNameVersion MatchTier = "NameVersion"
	TierHash        MatchTier = "Hash"
	TierFuzzy       MatchTier = "Fuzzy"
)

// TierConfidence is the fixed confidence score for every tier except Fuzzy,
// whose confidence is the computed similarity score instead, capped by the
// matcher at 0.84.
var TierConfidence = map[MatchTier]float64{
	TierPurl:        1.00,
	TierCpe:         0.98,
	TierSwid:        0.98,
	TierBomRef:      0.95,
	TierNameVersion: 0.90,
	TierHash:        0.85,
}

// MatchReason records which tier paired a component and, for the fuzzy
// tier, the score that crossed the threshold.
type MatchReason struct {
	Tier       MatchTier `json:"tier"`
	FuzzyScore float64   `json:"fuzzy_score,omitempty"`
}

// String renders the reason as the tier name, with the score attached for
// fuzzy pairs: "Fuzzy{0.8125}".
func (r MatchReason) String() string {
	if r.Tier == TierFuzzy {
		return fmt.Sprintf("Fuzzy{%.4f}", r.FuzzyScore)
	}
	return string(r.Tier)
}

// Match pairs a component from the old SBOM with one from the new SBOM.
type Match struct {
	Old        ComponentID `json:"old"`
	New        ComponentID `json:"new"`
	Confidence float64     `json:"confidence"`
	Reason     MatchReason `json:"reason"`
}

// MatchStats groups per-tier pairing counts plus the unmatched counts on
// each side.
type MatchStats struct {
	PurlExact    int `json:"purl_exact"`
	CpeExact     int `json:"cpe_exact"`
	SwidExact    int `json:"swid_exact"`
	BomRef       int `json:"bom_ref"`
	NameVersion  int `json:"name_version"`
	Hash         int `json:"hash"`
	Fuzzy        int `json:"fuzzy"`
	UnmatchedOld int `json:"unmatched_old"`
	UnmatchedNew int `json:"unmatched_new"`
}

// Record increments the counter for the tier a pair was accepted at.
func (s *MatchStats) Record(tier MatchTier) {
	switch tier {
	case TierPurl:
		s.PurlExact++
	case TierCpe:
		s.CpeExact++
	case TierSwid:
		s.SwidExact++
	case TierBomRef:
		s.BomRef++
	case TierNameVersion:
		s.NameVersion++
	case TierHash:
		s.Hash++
	case TierFuzzy:
		s.Fuzzy++
	}
}
