package domain

import "testing"

func TestFallbackPlanRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		plan      string
		usage     float64
		wantPlan  string
		wantValue float64
	}{
		{name: "busy basic upgrades to professional", plan: "Basic", usage: 1500, wantPlan: "Professional", wantValue: 5000},
		{name: "busy professional upgrades to enterprise", plan: "Professional", usage: 7500, wantPlan: "Enterprise", wantValue: 15000},
		{name: "quiet basic gets the generic pitch", plan: "Basic", usage: 500, wantPlan: "Professional", wantValue: 3000},
		{name: "quiet professional gets the generic pitch", plan: "Professional", usage: 2000, wantPlan: "Professional", wantValue: 3000},
		{name: "enterprise gets the generic pitch", plan: "Enterprise", usage: 50000, wantPlan: "Professional", wantValue: 3000},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := FallbackPlan(
				UsageSnapshot{AccountID: "acct-1", CurrentUsage: tc.usage},
				ContractSnapshot{AccountID: "acct-1", CurrentPlan: tc.plan},
			)
			if got.RecommendedPlan != tc.wantPlan {
				t.Fatalf("recommended = %s, want %s", got.RecommendedPlan, tc.wantPlan)
			}
			if got.EstimatedValue != tc.wantValue {
				t.Fatalf("value = %v, want %v", got.EstimatedValue, tc.wantValue)
			}
			if got.Justification == "" || len(got.Features) == 0 {
				t.Fatalf("fallback plan must carry justification and features")
			}
		})
	}
}

func TestPlanFeaturesReturnsACopy(t *testing.T) {
	t.Parallel()

	first := PlanFeatures("Enterprise")
	first[0] = "mutated"
	second := PlanFeatures("Enterprise")
	if second[0] == "mutated" {
		t.Fatalf("catalog must not be aliased by callers")
	}

	unknown := PlanFeatures("Galactic")
	if len(unknown) == 0 {
		t.Fatalf("unknown tiers still resolve to a default feature set")
	}
}

func TestDefaultSnapshots(t *testing.T) {
	t.Parallel()

	usage := DefaultUsageSnapshot("acct-1", string(MetricTradeVolume))
	if usage.CurrentUsage != 150 || usage.Trend != TrendIncreasing || usage.Period != PeriodMonthly {
		t.Fatalf("unexpected default usage: %+v", usage)
	}
	if usage.Context["source"] != "default_data" {
		t.Fatalf("default usage must be flagged as default data")
	}

	contract := DefaultContractSnapshot("acct-1")
	if contract.CurrentPlan != "Basic" || contract.CurrentSpend != 500 {
		t.Fatalf("unexpected default contract: %+v", contract)
	}
	if contract.Contact.Email == "" {
		t.Fatalf("default contract must carry a contact address")
	}
}
