package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

type Config struct {
	ServiceName string

	// ReplyTimeout bounds the awaiting-reply suspension; expiry records a
	// timeout reply and completes the run without scheduling.
	ReplyTimeout time.Duration
	// MaxStepAttempts caps transient retries for a single activity.
	MaxStepAttempts int
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
}

func (c *Config) applyDefaults() {
	if c.ReplyTimeout <= 0 {
		c.ReplyTimeout = 24 * time.Hour
	}
	if c.MaxStepAttempts <= 0 {
		c.MaxStepAttempts = 3
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 5 * time.Second
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 10 * time.Minute
	}
}

type StartRunInput struct {
	AccountID       string                 `json:"account_id"`
	EventID         string                 `json:"event_id"`
	AutomationLevel domain.AutomationLevel `json:"automation_level"`
	MetricType      string                 `json:"metric_type"`
}

type StartRunResult struct {
	RunID uuid.UUID `json:"run_id"`
}

type IngestAlertsInput struct {
	Alerts       []domain.UsageAlert `json:"alerts"`
	BatchID      string              `json:"batch_id,omitempty"`
	SourceSystem string              `json:"source_system,omitempty"`
}

type IngestAlertsResult struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	ProcessedCount int       `json:"processed_count"`
	RunIDs         []string  `json:"run_ids"`
	Errors         []string  `json:"errors,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// RunView is the externally visible projection of a run.
type RunView struct {
	RunID           uuid.UUID               `json:"run_id"`
	AccountID       string                  `json:"account_id"`
	EventID         string                  `json:"event_id"`
	AutomationLevel domain.AutomationLevel  `json:"automation_level"`
	MetricType      string                  `json:"metric_type"`
	State           domain.RunState         `json:"state"`
	ReplyStatus     domain.ReplyStatus      `json:"reply_status"`
	Plan            *domain.UpsellPlan      `json:"plan,omitempty"`
	EmailOutcome    domain.StepOutcome      `json:"email_outcome,omitempty"`
	TeamOutcome     domain.StepOutcome      `json:"team_outcome,omitempty"`
	MeetingOutcome  domain.StepOutcome      `json:"meeting_outcome,omitempty"`
	MeetingRef      string                  `json:"meeting_ref,omitempty"`
	ReplyDeadline   *time.Time              `json:"reply_deadline,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	CompletedAt     *time.Time              `json:"completed_at,omitempty"`
}

func runView(run *domain.Run) RunView {
	return RunView{
		RunID:           run.RunID,
		AccountID:       run.AccountID,
		EventID:         run.EventID,
		AutomationLevel: run.AutomationLevel,
		MetricType:      run.MetricType,
		State:           run.State,
		ReplyStatus:     run.ReplyStatus,
		Plan:            run.Plan,
		EmailOutcome:    run.EmailOutcome,
		TeamOutcome:     run.TeamOutcome,
		MeetingOutcome:  run.MeetingOutcome,
		MeetingRef:      run.MeetingRef,
		ReplyDeadline:   run.ReplyDeadline,
		CreatedAt:       run.CreatedAt,
		CompletedAt:     run.CompletedAt,
	}
}
