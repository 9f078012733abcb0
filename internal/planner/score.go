package planner

// score rates a candidate on completeness, clarity, feasibility, and
// alignment with the goal. Each model-emitted task
// already carries a per-task confidence score from the candidate-generation
// call; score composes those into a single comparable value without a
// second model round-trip, since the generating call is in the best
// position to judge its own candidate's internal coherence.
func score(c candidate) float64 {
	if len(c.Tasks) == 0 {
		return 0
	}
	var completeness, clarity, feasibility float64
	for _, t := range c.Tasks {
		if t.Description != "" {
			clarity++
		}
		if len(t.AffectedPaths) > 0 {
			completeness++
		}
		feasibility += t.Confidence
	}
	n := float64(len(c.Tasks))
	completeness /= n
	clarity /= n
	feasibility /= n

	// Alignment approximates how directly the task set decomposes the
	// goal: a plan with exactly one task per distinct artifact type reads
	// as more deliberately scoped than one with many same-typed tasks.
	byType := map[string]int{}
	for _, t := range c.Tasks {
		byType[t.ArtifactType]++
	}
	alignment := float64(len(byType)) / n

	return 0.3*completeness + 0.25*clarity + 0.25*feasibility + 0.2*alignment
}
