package ports

import "context"

// Feature names toggled at runtime. Toggles take effect on the next activity
// invocation, never on in-flight calls, so implementations must be read at
// call time rather than cached for a run's lifetime.
const (
	FeatureEmailSending      = "email_sending"
	FeatureLLMRecommendation = "llm_recommendation"
	FeatureTeamChatPosting   = "team_chat_posting"
	FeatureMeetingScheduling = "meeting_scheduling"
	FeatureContractLookup    = "contract_lookup"
	FeatureUsageLookup       = "usage_lookup"
)

// KnownFeatures lists every toggleable feature with its default state.
var KnownFeatures = map[string]bool{
	FeatureEmailSending:      true,
	FeatureLLMRecommendation: true,
	FeatureTeamChatPosting:   true,
	FeatureMeetingScheduling: true,
	FeatureContractLookup:    true,
	FeatureUsageLookup:       true,
}

// FeatureStore is the process-wide, externally mutable toggle map.
type FeatureStore interface {
	// Enabled reads the toggle at call time. Unknown names and store errors
	// resolve to the feature's default so a flaky store never blocks a run.
	Enabled(ctx context.Context, name string) bool
	Snapshot(ctx context.Context) (map[string]bool, error)
	Set(ctx context.Context, name string, enabled bool) error
}
