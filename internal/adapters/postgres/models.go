package postgres

import (
	"time"
)

// Columns holding snapshots and plans are JSON text so the same schema works
// on both supported drivers.

type runModel struct {
	RunID           string `gorm:"column:run_id;primaryKey"`
	AccountID       string `gorm:"column:account_id"`
	EventID         string `gorm:"column:event_id"`
	AutomationLevel string `gorm:"column:automation_level"`
	MetricType      string `gorm:"column:metric_type"`

	State       string `gorm:"column:state"`
	ReplyStatus string `gorm:"column:reply_status"`

	UsageSnapshot    *string `gorm:"column:usage_snapshot"`
	ContractSnapshot *string `gorm:"column:contract_snapshot"`
	Plan             *string `gorm:"column:plan"`

	EmailOutcome   string `gorm:"column:email_outcome"`
	TeamOutcome    string `gorm:"column:team_outcome"`
	MeetingOutcome string `gorm:"column:meeting_outcome"`
	MeetingRef     string `gorm:"column:meeting_ref"`

	WakeAt          time.Time  `gorm:"column:wake_at"`
	ReplyDeadline   *time.Time `gorm:"column:reply_deadline"`
	StepAttempts    int        `gorm:"column:step_attempts"`
	CancelRequested bool       `gorm:"column:cancel_requested"`
	FailureReason   string     `gorm:"column:failure_reason"`

	ClaimToken *string    `gorm:"column:claim_token"`
	ClaimUntil *time.Time `gorm:"column:claim_until"`

	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

func (runModel) TableName() string { return "upsell_runs" }

type opportunityModel struct {
	RunID           string    `gorm:"column:run_id;primaryKey"`
	AccountID       string    `gorm:"column:account_id"`
	EventID         string    `gorm:"column:event_id"`
	OpportunityType string    `gorm:"column:opportunity_type"`
	RecommendedPlan string    `gorm:"column:recommended_plan"`
	EstimatedValue  float64   `gorm:"column:estimated_value"`
	EmailOutcome    string    `gorm:"column:email_outcome"`
	TeamOutcome     string    `gorm:"column:team_outcome"`
	ReplyStatus     string    `gorm:"column:reply_status"`
	MeetingOutcome  string    `gorm:"column:meeting_outcome"`
	MeetingRef      string    `gorm:"column:meeting_ref"`
	Status          string    `gorm:"column:status"`
	Notes           string    `gorm:"column:notes"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (opportunityModel) TableName() string { return "upsell_opportunities" }

type contractModel struct {
	ContractID     string    `gorm:"column:contract_id;primaryKey"`
	AccountID      string    `gorm:"column:account_id"`
	ContractType   string    `gorm:"column:contract_type"`
	Status         string    `gorm:"column:status"`
	StartDate      time.Time `gorm:"column:start_date"`
	EndDate        time.Time `gorm:"column:end_date"`
	RenewalDate    time.Time `gorm:"column:renewal_date"`
	BaseMonthlyFee float64   `gorm:"column:base_monthly_fee"`
	AutoRenewal    bool      `gorm:"column:auto_renewal"`
	Features       *string   `gorm:"column:features"`
	UsageLimits    *string   `gorm:"column:usage_limits"`
	PrimaryContact *string   `gorm:"column:primary_contact"`
	BillingContact *string   `gorm:"column:billing_contact"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (contractModel) TableName() string { return "contracts" }

type usageModel struct {
	ID                string    `gorm:"column:id;primaryKey"`
	AccountID         string    `gorm:"column:account_id"`
	CurrentUsage      float64   `gorm:"column:current_usage"`
	Trend             string    `gorm:"column:trend"`
	Period            string    `gorm:"column:period"`
	ThresholdExceeded float64   `gorm:"column:threshold_exceeded"`
	MetricType        string    `gorm:"column:metric_type"`
	Context           *string   `gorm:"column:context"`
	CreatedAt         time.Time `gorm:"column:created_at"`
}

func (usageModel) TableName() string { return "usage_metrics" }

type outboxModel struct {
	OutboxID       string     `gorm:"column:outbox_id;primaryKey"`
	EventType      string     `gorm:"column:event_type"`
	PartitionKey   string     `gorm:"column:partition_key"`
	Payload        string     `gorm:"column:payload"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	PublishedAt    *time.Time `gorm:"column:published_at"`
	RetryCount     int        `gorm:"column:retry_count"`
	LastError      *string    `gorm:"column:last_error"`
	LastErrorAt    *time.Time `gorm:"column:last_error_at"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
	ClaimToken     *string    `gorm:"column:claim_token"`
	ClaimUntil     *time.Time `gorm:"column:claim_until"`
}

func (outboxModel) TableName() string { return "upsell_outbox" }
