package types

import "fmt"

// GateKind enumerates the validation layers a gate can run, ordered
// Syntax <= Lint <= Type <= Import <= Schema <= Endpoint <= Integration.
// Test gates attach to a single task rather than a layer group.
type GateKind string

const (
	GateSyntax      GateKind = "Syntax"
	GateLint        GateKind = "Lint"
	GateType        GateKind = "Type"
	GateImport      GateKind = "Import"
	GateInstantiate GateKind = "Instantiate"
	GateSchema      GateKind = "Schema"
	GateServe       GateKind = "Serve"
	GateEndpoint    GateKind = "Endpoint"
	GateIntegration GateKind = "Integration"
	GateTest        GateKind = "Test"
)

// gateOrder gives each kind a rank for the "no gate depends on a
// higher-ordered gate from the same layer" invariant.
var gateOrder = map[GateKind]int{
	GateSyntax:      0,
	GateLint:        1,
	GateType:        2,
	GateImport:      3,
	GateInstantiate: 3,
	GateSchema:      4,
	GateServe:       5,
	GateEndpoint:    5,
	GateIntegration: 6,
	GateTest:        6,
}

// Rank returns the ordering rank of a gate kind; lower runs earlier.
func (k GateKind) Rank() int { return gateOrder[k] }

// ValidationDescriptor carries the gate-specific check parameters (schema
// migration command, endpoint probes, test command, ...). It is a closed
// value type rather than an open map.
type ValidationDescriptor struct {
	Command      string            `json:"command,omitempty"`
	Args         []string          `json:"args,omitempty"`
	ProbePaths   []string          `json:"probe_paths,omitempty"`
	ExpectStatus int               `json:"expect_status,omitempty"`
	ExpectBody   string            `json:"expect_body,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
}

// Gate is a validation checkpoint inserted into a TaskGraph. It blocks its
// DependsOn's dependents (Blocks) until it passes.
type Gate struct {
	ID         string               `json:"id"`
	Kind       GateKind             `json:"kind"`
	DependsOn  []string             `json:"depends_on"` // feeder task ids
	Blocks     []string             `json:"blocks"`     // dependent task ids
	Validation ValidationDescriptor `json:"validation"`
}

// TaskSpec is an artifact-producing unit of work.
type TaskSpec struct {
	ID             string   `json:"id"`
	Description    string   `json:"description"`
	ArtifactType   string   `json:"artifact_type"`
	ProducesModule string   `json:"produces_module,omitempty"`
	AffectedPaths  []string `json:"affected_paths"`
	Confidence     float64  `json:"confidence"`
	Requires       []string `json:"requires"`
}

// TaskGraph is the acyclic directed graph of TaskSpecs plus inserted Gates.
type TaskGraph struct {
	Tasks []TaskSpec `json:"tasks"`
	Gates []Gate     `json:"gates"`
	// TopoOrder is a precomputed topological ordering of task IDs, ascending
	// by ID within a tier for deterministic tie-breaking.
	TopoOrder []string `json:"topo_order"`
}

// TaskByID returns the task with the given id, or false if absent.
func (g *TaskGraph) TaskByID(id string) (TaskSpec, bool) {
	for _, t := range g.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskSpec{}, false
}

// GateByID returns the gate with the given id, or false if absent.
func (g *TaskGraph) GateByID(id string) (Gate, bool) {
	for _, gt := range g.Gates {
		if gt.ID == id {
			return gt, true
		}
	}
	return Gate{}, false
}

// FeederGate returns the gate a task feeds into, if any. A task belongs to
// at most one feeder gate.
func (g *TaskGraph) FeederGate(taskID string) (Gate, bool) {
	for _, gt := range g.Gates {
		for _, d := range gt.DependsOn {
			if d == taskID {
				return gt, true
			}
		}
	}
	return Gate{}, false
}

// GatesBlocking returns the gates that must pass before taskID may be
// dispatched.
func (g *TaskGraph) GatesBlocking(taskID string) []Gate {
	var out []Gate
	for _, gt := range g.Gates {
		for _, b := range gt.Blocks {
			if b == taskID {
				out = append(out, gt)
				break
			}
		}
	}
	return out
}

// ValidateAcyclic checks P1: the transitive closure of Requires contains no
// cycles. It returns the first cycle detected, formatted for diagnostics.
func (g *TaskGraph) ValidateAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.Tasks))
	byID := make(map[string]TaskSpec, len(g.Tasks))
	for _, t := range g.Tasks {
		byID[t.ID] = t
	}

	var visit func(id string, stack []string) error
	visit = func(id string, stack []string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("task graph has a cycle: %v -> %s", stack, id)
		}
		color[id] = gray
		stack = append(stack, id)
		for _, dep := range byID[id].Requires {
			if err := visit(dep, stack); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}

	for _, t := range g.Tasks {
		if color[t.ID] == white {
			if err := visit(t.ID, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// Artifact is a produced file, owned by the task that produced it.
type Artifact struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	ProducedBy string `json:"produced_by"`
	Language   string `json:"language"`
}

// Severity of a ValidationError.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ErrorKind classifies a ValidationError for routing to a fix strategy.
type ErrorKind string

const (
	ErrSyntax  ErrorKind = "Syntax"
	ErrLint    ErrorKind = "Lint"
	ErrType    ErrorKind = "Type"
	ErrImport  ErrorKind = "Import"
	ErrRuntime ErrorKind = "Runtime"
	ErrTest    ErrorKind = "Test"
	ErrTimeout ErrorKind = "Timeout"
)

// LineRange is an inclusive [Start, End] range within File.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ValidationError is the first failure surfaced by the Validation Cascade.
type ValidationError struct {
	Kind     ErrorKind `json:"kind"`
	File     string    `json:"file"`
	Lines    LineRange `json:"lines"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
}

// GateResult is the outcome of one gate attempt, retained for resume.
type GateResult struct {
	GateID          string            `json:"gate_id"`
	Passed          bool              `json:"passed"`
	DurationMS      int64             `json:"duration_ms"`
	ValidationOut   string            `json:"validation_output"`
	CheckpointHash  string            `json:"checkpoint_hash,omitempty"`
	ArtifactHashes  map[string]string `json:"artifact_hashes,omitempty"` // path -> content hash
	CommandsRun     []string          `json:"commands_run,omitempty"`
	Errors          []ValidationError `json:"errors,omitempty"`
}

// FixAttempt is one iteration of the Auto-Fixer against a specific error.
type FixAttempt struct {
	Error        ValidationError `json:"error"`
	Strategy     StrategyName    `json:"strategy"`
	Result       string          `json:"result"` // "passed" | "failed" | "deadend"
	RegionFile   string          `json:"region_file"`
	RegionStart  int             `json:"region_start"`
	RegionEnd    int             `json:"region_end"`
}

// MaxFixAttempts bounds attempts_per_error.
const MaxFixAttempts = 3
