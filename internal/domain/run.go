package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunState is the current position of a run inside the upsell state machine.
// Transitions are strictly forward; failed and cancelled are reachable from any state.
type RunState string

const (
	RunStateStarted           RunState = "started"
	RunStateFetchingData      RunState = "fetching_data"
	RunStateAnalyzing         RunState = "analyzing"
	RunStateNotifyingCustomer RunState = "notifying_customer"
	RunStateNotifyingTeam     RunState = "notifying_team"
	RunStateAwaitingReply     RunState = "awaiting_reply"
	RunStateScheduling        RunState = "scheduling"
	RunStateCompleted         RunState = "completed"
	RunStateFailed            RunState = "failed"
)

// AutomationLevel controls how much human approval is required before
// customer-facing or scheduling actions occur. Fixed for the lifetime of a run.
type AutomationLevel string

const (
	AutomationFull   AutomationLevel = "full_automation"
	AutomationHuman  AutomationLevel = "human_intervention"
	AutomationHybrid AutomationLevel = "hybrid"
)

func ParseAutomationLevel(raw string) (AutomationLevel, error) {
	switch AutomationLevel(raw) {
	case AutomationFull, AutomationHuman, AutomationHybrid:
		return AutomationLevel(raw), nil
	}
	return "", ErrInvalidInput
}

// AutomationFromSeverity maps alert severity to the automation policy:
// critical alerts run unattended, low-severity ones always wait for a human,
// everything else runs hybrid.
func AutomationFromSeverity(severity AlertSeverity) AutomationLevel {
	switch severity {
	case SeverityCritical:
		return AutomationFull
	case SeverityLow:
		return AutomationHuman
	default:
		return AutomationHybrid
	}
}

// ReplyStatus records the customer-reply outcome on a run. Signal submissions
// may only carry yes/no/maybe; timeout and auto_approved are engine-assigned.
type ReplyStatus string

const (
	ReplyPending      ReplyStatus = "pending"
	ReplyYes          ReplyStatus = "yes"
	ReplyNo           ReplyStatus = "no"
	ReplyMaybe        ReplyStatus = "maybe"
	ReplyTimeout      ReplyStatus = "timeout"
	ReplyAutoApproved ReplyStatus = "auto_approved"
)

func ParseReply(raw string) (ReplyStatus, error) {
	switch ReplyStatus(raw) {
	case ReplyYes, ReplyNo, ReplyMaybe:
		return ReplyStatus(raw), nil
	}
	return "", ErrInvalidInput
}

// StepOutcome is the persisted result of a single side-effecting activity.
// Recording it before the state advances is what keeps re-entry idempotent.
type StepOutcome string

const (
	StepPending   StepOutcome = ""
	StepDelivered StepOutcome = "delivered"
	StepPosted    StepOutcome = "posted"
	StepScheduled StepOutcome = "scheduled"
	StepSkipped   StepOutcome = "skipped"
)

// TerminalStatus is the business outcome written into the OpportunityRecord.
type TerminalStatus string

const (
	StatusCompleted  TerminalStatus = "completed"
	StatusNoContract TerminalStatus = "no_contract"
	StatusCancelled  TerminalStatus = "cancelled"
	StatusFailed     TerminalStatus = "failed"
)

// Run is the durable record of one upsell state machine execution.
// Every snapshot and step outcome the machine accumulates is persisted here so
// any worker can resume the run after a restart without repeating side effects.
type Run struct {
	RunID           uuid.UUID
	AccountID       string
	EventID         string
	AutomationLevel AutomationLevel
	MetricType      string

	State       RunState
	ReplyStatus ReplyStatus

	Usage    *UsageSnapshot
	Contract *ContractSnapshot
	Plan     *UpsellPlan

	EmailOutcome   StepOutcome
	TeamOutcome    StepOutcome
	MeetingOutcome StepOutcome
	MeetingRef     string

	// WakeAt is the next instant the worker should pick this run up: immediately
	// for runnable states, the reply deadline while awaiting a signal.
	WakeAt          time.Time
	ReplyDeadline   *time.Time
	StepAttempts    int
	CancelRequested bool
	FailureReason   string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Terminal reports whether the run reached a state no transition leaves.
func (r *Run) Terminal() bool {
	return r.State == RunStateCompleted || r.State == RunStateFailed
}

// AcceptsReply reports whether a customer reply signal may be recorded now.
// At most one reply is accepted per run; anything after the decision point is ignored.
func (r *Run) AcceptsReply() bool {
	return r.State == RunStateAwaitingReply && r.ReplyStatus == ReplyPending
}
