package router

import "sunwell/internal/types"

// planningCondition resolves the planning decision's join key in the exact
// priority order of the planning-routing table (dangerous beats
// low-confidence beats ambiguous beats complexity).
func planningCondition(s types.SignalVector) string {
	switch {
	case s.IsDangerous == types.Yes:
		return "dangerous"
	case s.Confidence < 0.3:
		return "low_confidence"
	case s.IsAmbiguous == types.Yes:
		return "ambiguous"
	case s.Complexity == types.No:
		return "complexity_no"
	default:
		return "complexity_yes"
	}
}

// taskCondition buckets a per-task confidence score into the task-confidence
// table's join key.
func taskCondition(confidence float64) string {
	switch {
	case confidence >= 0.85:
		return "ge_085"
	case confidence >= 0.6:
		return "ge_06"
	case confidence >= 0.3:
		return "ge_03"
	default:
		return "lt_03"
	}
}
