// Package types holds the data model shared by every component of the
// execution core: signal vectors, strategies, budgets, task graphs, gates,
// goals, and the memory entities. All types here are value types; mutation
// happens by replacement, never by in-place edit of a shared instance.
package types

// Tri is a three-valued signal for classifier outputs where a plain
// boolean can't express "unsure" (complexity, is_ambiguous).
type Tri string

const (
	No    Tri = "NO"
	Maybe Tri = "MAYBE"
	Yes   Tri = "YES"
)

// SignalVector is the fixed-shape output of the Signal Extractor.
type SignalVector struct {
	Complexity    Tri     `json:"complexity"`
	NeedsTools    bool    `json:"needs_tools"`
	IsAmbiguous   Tri     `json:"is_ambiguous"`
	IsDangerous   Tri     `json:"is_dangerous"`
	Confidence    float64 `json:"confidence"`
	Domain        string  `json:"domain"`
	ToolchainHint string  `json:"toolchain_hint"`

	// Degraded is set when extraction fell back to conservative defaults
	// (parse failure or timeout) rather than a genuine model response.
	Degraded bool `json:"degraded"`
}

// ConservativeDefault is the vector returned on extraction failure:
// complexity=YES, needs_tools=YES, confidence=0.5, is_dangerous=NO,
// is_ambiguous=MAYBE.
func ConservativeDefault() SignalVector {
	return SignalVector{
		Complexity:  Yes,
		NeedsTools:  true,
		IsAmbiguous: Maybe,
		IsDangerous: No,
		Confidence:  0.5,
		Degraded:    true,
	}
}
