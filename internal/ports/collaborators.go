package ports

import (
	"context"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

// PlanRecommender produces the upsell recommendation. Implementations must
// never surface an error the run cannot absorb: provider failures fall back to
// rule-based planning internally.
type PlanRecommender interface {
	RecommendPlan(ctx context.Context, usage domain.UsageSnapshot, contract domain.ContractSnapshot) (domain.UpsellPlan, error)
}

// CustomerMessenger delivers the customer-facing upsell message.
// A disabled or mock implementation reports StepSkipped without transmitting.
type CustomerMessenger interface {
	SendCustomerMessage(ctx context.Context, contact domain.Contact, plan domain.UpsellPlan, usage domain.UsageSnapshot, contract domain.ContractSnapshot) (domain.StepOutcome, error)
}

// TeamNotifier posts the internal opportunity summary to the sales channel.
type TeamNotifier interface {
	PostTeamSummary(ctx context.Context, runID string, plan domain.UpsellPlan, usage domain.UsageSnapshot, contract domain.ContractSnapshot, emailOutcome domain.StepOutcome) (domain.StepOutcome, error)
}

// MeetingScheduler books the follow-up meeting after an affirmative reply.
type MeetingScheduler interface {
	ScheduleMeeting(ctx context.Context, contact domain.Contact, accountID, recommendedPlan string) (ref string, outcome domain.StepOutcome, err error)
}
