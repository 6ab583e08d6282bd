package domain

import "time"

// FallbackPlan is the deterministic rule-based recommendation used whenever
// the LLM provider is disabled or fails. It never errors, which is what keeps
// the analysis step from failing the run.
func FallbackPlan(usage UsageSnapshot, contract ContractSnapshot) UpsellPlan {
	var (
		recommended string
		value       float64
		reason      string
	)
	switch {
	case contract.CurrentPlan == "Basic" && usage.CurrentUsage > 1000:
		recommended = "Professional"
		value = 5000
		reason = "High usage detected, upgrade to Professional plan for better performance"
	case contract.CurrentPlan == "Professional" && usage.CurrentUsage > 5000:
		recommended = "Enterprise"
		value = 15000
		reason = "Enterprise-level usage detected, upgrade for dedicated support and advanced features"
	default:
		recommended = "Professional"
		value = 3000
		reason = "Usage growth detected, upgrade for additional features and support"
	}
	return UpsellPlan{
		RecommendedPlan: recommended,
		EstimatedValue:  value,
		Justification:   reason,
		Features:        PlanFeatures(recommended),
		ROIAnalysis:     "Expected 3x ROI within 6 months",
		RiskAssessment:  "Low risk, high potential value",
	}
}

var planFeatureCatalog = map[string][]string{
	"Basic":         {"Basic Analytics", "Email Support"},
	"Professional":  {"Advanced Analytics", "Priority Support", "Custom Integrations"},
	"Enterprise":    {"Advanced Analytics", "Priority Support", "Custom Integrations", "Dedicated Account Manager", "SLA Guarantee"},
	"Pro-250k":      {"High Volume Trading", "Advanced Analytics", "Priority Support"},
	"Pro-500k":      {"High Volume Trading", "Advanced Analytics", "Priority Support", "Custom Integrations"},
	"Enterprise-1M": {"Enterprise Features", "Dedicated Support", "Custom Solutions"},
}

// PlanFeatures resolves the ordered feature list for a plan tier.
func PlanFeatures(plan string) []string {
	if features, ok := planFeatureCatalog[plan]; ok {
		out := make([]string, len(features))
		copy(out, features)
		return out
	}
	return []string{"Advanced Analytics", "Priority Support", "Custom Integrations"}
}

// DefaultContractSnapshot stands in when the contract lookup feature is
// toggled off, keeping runs flowing on a nominal Basic contract.
func DefaultContractSnapshot(accountID string) ContractSnapshot {
	now := time.Now().UTC()
	return ContractSnapshot{
		AccountID:    accountID,
		CurrentPlan:  "Basic",
		EndDate:      now.AddDate(1, 0, 0),
		RenewalDate:  now.AddDate(0, 11, 0),
		CurrentSpend: 500,
		Terms:        Attributes{"source": "default_data"},
		Contact:      Contact{Name: "Account Owner", Email: "contact@" + accountID + ".example.com"},
	}
}

// DefaultUsageSnapshot stands in when no usage metrics were ingested for the
// account. The run proceeds on conservative defaults rather than failing.
func DefaultUsageSnapshot(accountID, metricType string) UsageSnapshot {
	return UsageSnapshot{
		AccountID:         accountID,
		CurrentUsage:      150,
		Trend:             TrendIncreasing,
		Period:            PeriodMonthly,
		ThresholdExceeded: 100,
		MetricType:        metricType,
		Context:           Attributes{"source": "default_data"},
	}
}
