package domain

import (
	"errors"
	"testing"
)

func validAlert() UsageAlert {
	return UsageAlert{
		AlertID:    "alert-1",
		MetricType: MetricTradeCount,
		Severity:   SeverityMedium,
		ThresholdCondition: ThresholdCondition{
			Operator: "gt",
			Value:    100,
		},
		MetricData: MetricData{
			MetricName:     "trade_count",
			CurrentValue:   150,
			ThresholdValue: 100,
			AccountID:      "acct-1",
		},
		Title:       "trade count threshold",
		Description: "trade count crossed the configured threshold",
	}
}

func TestUsageAlertValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*UsageAlert)
		wantErr bool
	}{
		{name: "valid alert", mutate: func(a *UsageAlert) {}},
		{name: "blank id", mutate: func(a *UsageAlert) { a.AlertID = "  " }, wantErr: true},
		{name: "unknown metric", mutate: func(a *UsageAlert) { a.MetricType = "cpu_temp" }, wantErr: true},
		{name: "unknown severity", mutate: func(a *UsageAlert) { a.Severity = "urgent" }, wantErr: true},
		{name: "missing metric name", mutate: func(a *UsageAlert) { a.MetricData.MetricName = "" }, wantErr: true},
		{name: "nested map in context", mutate: func(a *UsageAlert) {
			a.Context = Attributes{"nested": map[string]any{"no": true}}
		}, wantErr: true},
		{name: "scalar array context", mutate: func(a *UsageAlert) {
			a.Context = Attributes{"tags": []any{"vip", "apac"}}
		}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			alert := validAlert()
			tc.mutate(&alert)
			err := alert.Validate()
			if tc.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestUsageAlertTriggersUpsell(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*UsageAlert)
		want   bool
	}{
		{name: "high severity", mutate: func(a *UsageAlert) { a.Severity = SeverityHigh }, want: true},
		{name: "critical severity", mutate: func(a *UsageAlert) { a.Severity = SeverityCritical }, want: true},
		{name: "large measurement", mutate: func(a *UsageAlert) { a.MetricData.CurrentValue = 1500 }, want: true},
		{name: "measurement at boundary", mutate: func(a *UsageAlert) { a.MetricData.CurrentValue = 1000 }, want: false},
		{name: "trade volume metric", mutate: func(a *UsageAlert) { a.MetricType = MetricTradeVolume }, want: true},
		{name: "trade value metric", mutate: func(a *UsageAlert) { a.MetricType = MetricTradeValue }, want: true},
		{name: "balance change metric", mutate: func(a *UsageAlert) { a.MetricType = MetricBalanceChange }, want: true},
		{name: "quiet latency alert", mutate: func(a *UsageAlert) {
			a.MetricType = MetricLatency
			a.Severity = SeverityLow
			a.MetricData.CurrentValue = 10
		}, want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			alert := validAlert()
			tc.mutate(&alert)
			if got := alert.TriggersUpsell(); got != tc.want {
				t.Fatalf("TriggersUpsell() = %v, want %v", got, tc.want)
			}
		})
	}
}
