package events

import (
	"fmt"

	"sunwell/internal/types"
)

// requiredFields lists the Data keys that must be present for each
// EventType before emission.
// This is a deliberately small, closed schema set rather than a generic
// JSON Schema document — it only needs to catch a missing field at the
// point of emission, not describe third-party consumers' parsing.
var requiredFields = map[types.EventType][]string{
	types.EventSignalExtracting: {"goal"},
	types.EventSignal:           {"complexity", "confidence"},

	types.EventPlanStart:     {"goal"},
	types.EventPlanCandidate: {"index", "score"},
	types.EventPlanWinner:    {"index", "agreement"},
	types.EventPlanAbort:     {"reason"},

	types.EventTaskStart:    {"task_id"},
	types.EventTaskProgress: {"task_id"},
	types.EventTaskComplete: {"task_id"},
	types.EventTaskFailed:   {"task_id", "reason"},

	types.EventGateStart:   {"gate_id"},
	types.EventGateStep:    {"gate_id", "layer"},
	types.EventGatePass:    {"gate_id", "checkpoint_hash"},
	types.EventGateFail:    {"gate_id", "error_kind"},
	types.EventGateTimeout: {"gate_id"},

	types.EventValidateStart: {"gate_id"},
	types.EventValidateLevel: {"gate_id", "layer"},
	types.EventValidatePass:  {"gate_id"},
	types.EventValidateError: {"gate_id", "error_kind"},

	types.EventFixStart:    {"error_kind", "strategy"},
	types.EventFixProgress: {"attempt"},
	types.EventFixComplete: {"attempt"},
	types.EventFixFailed:   {"attempt"},

	types.EventMemoryLoad:       {},
	types.EventMemoryLoaded:     {},
	types.EventMemoryNew:        {},
	types.EventMemoryLearning:   {"category"},
	types.EventMemoryDeadEnd:    {"approach"},
	types.EventMemoryCheckpoint: {"gate_id"},
	types.EventMemorySaved:      {},

	types.EventBriefingLoaded: {},
	types.EventBriefingSaved:  {},

	types.EventPrefetchStart:    {},
	types.EventPrefetchComplete: {},
	types.EventPrefetchTimeout:  {},

	types.EventLensSuggested: {"lens"},

	types.EventWorkerStart:    {"worker_id"},
	types.EventWorkerClaim:    {"worker_id", "goal_id"},
	types.EventWorkerComplete: {"worker_id"},
	types.EventWorkerFailed:   {"worker_id", "reason"},

	types.EventEscalate: {"reason"},
	types.EventComplete: {},
	types.EventError:    {"message"},
}

// Validate checks e.Data against the schema registered for e.Type.
// Unknown event types fail closed.
func Validate(e types.AgentEvent) error {
	fields, ok := requiredFields[e.Type]
	if !ok {
		return fmt.Errorf("events: unknown event type %q", e.Type)
	}
	for _, f := range fields {
		if _, present := e.Data[f]; !present {
			return fmt.Errorf("events: %q missing required field %q", e.Type, f)
		}
	}
	return nil
}
