package model

import "fmt"

// Validate checks the structural invariants a NormalizedSbom must satisfy
// before it may be diffed: every edge must resolve to components present
// in the same document, and every component must carry a name.
//
// It returns a plain error; the caller (the root sbomdiff package) is
// responsible for wrapping it as an *Error with the InvalidInput kind.
func (s *NormalizedSbom) Validate() error {
	if s == nil {
		return fmt.Errorf("nil NormalizedSbom")
	}
	for _, e := range s.Edges {
		if _, ok := s.Components[e.From]; !ok {
			return fmt.Errorf("dangling edge: from component %q not present", e.From)
		}
		if _, ok := s.Components[e.To]; !ok {
			return fmt.Errorf("dangling edge: to component %q not present", e.To)
		}
	}
	for id, c := range s.Components {
		if c == nil {
			return fmt.Errorf("nil component at id %q", id)
		}
		if c.ID != "" && c.ID != id {
			return fmt.Errorf("component id mismatch: map key %q, Component.ID %q", id, c.ID)
		}
		if c.Name == "" {
			return fmt.Errorf("component %q missing required field name", id)
		}
	}
	return nil
}
