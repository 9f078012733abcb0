package types

import "time"

// EventType enumerates the stable AgentEvent type names.
// Additions are additive only; never remove or rename a value once shipped.
type EventType string

const (
	EventSignalExtracting EventType = "signal_extracting"
	EventSignal           EventType = "signal"

	EventPlanStart     EventType = "plan_start"
	EventPlanCandidate EventType = "plan_candidate"
	EventPlanWinner    EventType = "plan_winner"
	EventPlanAbort     EventType = "plan_abort"

	EventTaskStart    EventType = "task_start"
	EventTaskProgress EventType = "task_progress"
	EventTaskComplete EventType = "task_complete"
	EventTaskFailed   EventType = "task_failed"

	EventGateStart   EventType = "gate_start"
	EventGateStep    EventType = "gate_step"
	EventGatePass    EventType = "gate_pass"
	EventGateFail    EventType = "gate_fail"
	EventGateTimeout EventType = "gate_timeout"

	EventValidateStart EventType = "validate_start"
	EventValidateLevel EventType = "validate_level"
	EventValidatePass  EventType = "validate_pass"
	EventValidateError EventType = "validate_error"

	EventFixStart    EventType = "fix_start"
	EventFixProgress EventType = "fix_progress"
	EventFixComplete EventType = "fix_complete"
	EventFixFailed   EventType = "fix_failed"

	EventMemoryLoad      EventType = "memory_load"
	EventMemoryLoaded    EventType = "memory_loaded"
	EventMemoryNew       EventType = "memory_new"
	EventMemoryLearning  EventType = "memory_learning"
	EventMemoryDeadEnd   EventType = "memory_dead_end"
	EventMemoryCheckpoint EventType = "memory_checkpoint"
	EventMemorySaved     EventType = "memory_saved"

	EventBriefingLoaded EventType = "briefing_loaded"
	EventBriefingSaved  EventType = "briefing_saved"

	EventPrefetchStart    EventType = "prefetch_start"
	EventPrefetchComplete EventType = "prefetch_complete"
	EventPrefetchTimeout  EventType = "prefetch_timeout"

	EventLensSuggested EventType = "lens_suggested"

	EventWorkerStart    EventType = "worker_start"
	EventWorkerClaim    EventType = "worker_claim"
	EventWorkerComplete EventType = "worker_complete"
	EventWorkerFailed   EventType = "worker_failed"

	EventEscalate EventType = "escalate"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// AgentEvent is one record in the agent event stream. Data is
// schema-validated against RequiredFields before emission; unknown fields in
// Data are permitted on ingest for forward compatibility.
type AgentEvent struct {
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp float64        `json:"timestamp"` // seconds since epoch
	// Seq is a per-session monotonic sequence number.
	Seq int64 `json:"seq"`
	// WorkerTag identifies the emitting worker when multiplexed by the
	// coordinator.
	WorkerTag string `json:"worker_tag,omitempty"`
}

// NewEvent builds an AgentEvent stamped with the current time.
func NewEvent(t EventType, data map[string]any) AgentEvent {
	return AgentEvent{Type: t, Data: data, Timestamp: float64(time.Now().UnixNano()) / 1e9}
}
