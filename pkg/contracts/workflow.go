package contracts

import "time"

// ExecutionState is the lifecycle state of a plan's workflow execution.
// Transitions are monotonic along the state graph; there are no
// backward transitions.
type ExecutionState string

const (
	StateCreated          ExecutionState = "created"
	StateEvaluated        ExecutionState = "evaluated"
	StateAwaitingApproval ExecutionState = "awaiting_approval"
	StateApproved         ExecutionState = "approved"
	StateRejected         ExecutionState = "rejected"
	StateExecuting        ExecutionState = "executing"
	StateCompleted        ExecutionState = "completed"
	StateFailed           ExecutionState = "failed"
)

// stateGraph enumerates the legal forward transitions.
// evaluated -> executing is the approved-by-policy path with no
// ApprovalRecord ever created.
var stateGraph = map[ExecutionState][]ExecutionState{
	StateCreated:          {StateEvaluated},
	StateEvaluated:        {StateAwaitingApproval, StateExecuting},
	StateAwaitingApproval: {StateApproved, StateRejected},
	StateApproved:         {StateExecuting},
	StateExecuting:        {StateCompleted, StateFailed},
}

// CanTransition reports whether from -> to is a legal state transition.
func CanTransition(from, to ExecutionState) bool {
	for _, next := range stateGraph[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s ExecutionState) Terminal() bool {
	return len(stateGraph[s]) == 0
}

// AttemptOutcome classifies a single activity attempt.
type AttemptOutcome string

const (
	OutcomeSucceeded AttemptOutcome = "succeeded"
	OutcomeFailed    AttemptOutcome = "failed"
	OutcomeTimedOut  AttemptOutcome = "timed_out"
)

// ActivityInvocation is one recorded attempt of an external activity.
// Every attempt is recorded, including failures, for postmortem.
type ActivityInvocation struct {
	Activity  string         `json:"activity"`
	Attempt   int            `json:"attempt"`
	ArgsHash  string         `json:"args_hash"`
	Timeout   time.Duration  `json:"timeout"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Outcome   AttemptOutcome `json:"outcome"`
	Error     string         `json:"error,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
}

// WorkflowExecution is the durable record of a plan's lifecycle. It is
// owned exclusively by the workflow executor and is the only entity
// requiring crash-recoverable persistence, because it coordinates
// external side effects.
type WorkflowExecution struct {
	PlanID     string               `json:"plan_id"`
	Plan       ProvisionPlan        `json:"plan"`
	State      ExecutionState       `json:"state"`
	Risk       *RiskAssessment      `json:"risk,omitempty"`
	Cost       *CostEstimate        `json:"cost,omitempty"`
	Compliance *ComplianceResult    `json:"compliance,omitempty"`
	Decision   *ApprovalDecision    `json:"decision,omitempty"`
	History    []ActivityInvocation `json:"history,omitempty"`
	Result     map[string]any       `json:"result,omitempty"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// CompletedActivity returns the successful invocation of the named
// activity from the durable history, if any. Recovery uses this to
// resume from the last completed step instead of re-invoking it.
func (e *WorkflowExecution) CompletedActivity(name string) *ActivityInvocation {
	for i := range e.History {
		if e.History[i].Activity == name && e.History[i].Outcome == OutcomeSucceeded {
			return &e.History[i]
		}
	}
	return nil
}

// Attempts counts the recorded attempts of the named activity.
func (e *WorkflowExecution) Attempts(name string) int {
	n := 0
	for i := range e.History {
		if e.History[i].Activity == name {
			n++
		}
	}
	return n
}
