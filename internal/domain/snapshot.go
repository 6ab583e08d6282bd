package domain

import "time"

// UsageTrend describes the direction of an account's usage over the period.
type UsageTrend string

const (
	TrendIncreasing UsageTrend = "increasing"
	TrendDecreasing UsageTrend = "decreasing"
	TrendStable     UsageTrend = "stable"
)

// UsagePeriod is the aggregation window the snapshot covers.
type UsagePeriod string

const (
	PeriodDaily   UsagePeriod = "daily"
	PeriodWeekly  UsagePeriod = "weekly"
	PeriodMonthly UsagePeriod = "monthly"
)

// UsageSnapshot is the account's usage picture at trigger time.
// It is fetched exactly once per run and never mutated afterwards.
type UsageSnapshot struct {
	AccountID         string      `json:"account_id"`
	CurrentUsage      float64     `json:"current_usage"`
	Trend             UsageTrend  `json:"trend"`
	Period            UsagePeriod `json:"period"`
	ThresholdExceeded float64     `json:"threshold_exceeded"`
	MetricType        string      `json:"metric_type"`
	Context           Attributes  `json:"context,omitempty"`
}

// Contact is the customer-facing contact lifted off the contract.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// ContractSnapshot is a read-only view of the externally-owned contract state.
// The workflow never writes through it.
type ContractSnapshot struct {
	AccountID    string     `json:"account_id"`
	CurrentPlan  string     `json:"current_plan"`
	EndDate      time.Time  `json:"end_date"`
	RenewalDate  time.Time  `json:"renewal_date"`
	CurrentSpend float64    `json:"current_spend"`
	Terms        Attributes `json:"terms,omitempty"`
	Contact      Contact    `json:"contact"`
	Billing      Contact    `json:"billing,omitempty"`
}

// UpsellPlan is the recommendation produced once per run by the analysis step.
type UpsellPlan struct {
	RecommendedPlan string   `json:"recommended_plan"`
	EstimatedValue  float64  `json:"estimated_value"`
	Justification   string   `json:"justification"`
	Features        []string `json:"features"`
	ROIAnalysis     string   `json:"roi_analysis"`
	RiskAssessment  string   `json:"risk_assessment"`
	EmailSubject    string   `json:"email_subject,omitempty"`
	EmailBody       string   `json:"email_body,omitempty"`
}

// OpportunityRecord is the write-once audit entity produced at the terminal
// state of every run, regardless of which path the run took.
type OpportunityRecord struct {
	RunID           string         `json:"run_id"`
	AccountID       string         `json:"account_id"`
	EventID         string         `json:"event_id"`
	OpportunityType string         `json:"opportunity_type"`
	RecommendedPlan string         `json:"recommended_plan,omitempty"`
	EstimatedValue  float64        `json:"estimated_value"`
	EmailOutcome    StepOutcome    `json:"email_outcome"`
	TeamOutcome     StepOutcome    `json:"team_outcome"`
	ReplyStatus     ReplyStatus    `json:"reply_status"`
	MeetingOutcome  StepOutcome    `json:"meeting_outcome"`
	MeetingRef      string         `json:"meeting_ref,omitempty"`
	Status          TerminalStatus `json:"status"`
	Notes           string         `json:"notes,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}
