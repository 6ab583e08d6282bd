package domain

import (
	"strings"
	"time"
)

// MetricType enumerates the usage metrics that can trigger alerts.
type MetricType string

const (
	MetricTradeVolume     MetricType = "trade_volume"
	MetricTradeCount      MetricType = "trade_count"
	MetricTradeValue      MetricType = "trade_value"
	MetricLatency         MetricType = "latency"
	MetricSLAViolation    MetricType = "sla_violation"
	MetricBalanceChange   MetricType = "balance_change"
	MetricTradingPattern  MetricType = "trading_pattern"
	MetricAccountActivity MetricType = "account_activity"
)

var knownMetricTypes = map[MetricType]struct{}{
	MetricTradeVolume:     {},
	MetricTradeCount:      {},
	MetricTradeValue:      {},
	MetricLatency:         {},
	MetricSLAViolation:    {},
	MetricBalanceChange:   {},
	MetricTradingPattern:  {},
	MetricAccountActivity: {},
}

// AlertSeverity levels, ordered low to critical.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

var knownSeverities = map[AlertSeverity]struct{}{
	SeverityLow:      {},
	SeverityMedium:   {},
	SeverityHigh:     {},
	SeverityCritical: {},
}

// ThresholdCondition is the comparison the alerting system evaluated.
type ThresholdCondition struct {
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
}

// MetricData is the concrete measurement that violated the threshold.
type MetricData struct {
	MetricName     string     `json:"metric_name"`
	CurrentValue   float64    `json:"current_value"`
	ThresholdValue float64    `json:"threshold_value"`
	AccountID      string     `json:"account_id,omitempty"`
	TradeType      string     `json:"trade_type,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
	Context        Attributes `json:"additional_context,omitempty"`
}

// UsageAlert is one alert delivered on the webhook surface.
type UsageAlert struct {
	AlertID            string             `json:"alert_id"`
	MetricType         MetricType         `json:"metric_type"`
	Severity           AlertSeverity      `json:"severity"`
	ThresholdCondition ThresholdCondition `json:"threshold_condition"`
	MetricData         MetricData         `json:"metric_data"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	Source             string             `json:"source,omitempty"`
	Tags               []string           `json:"tags,omitempty"`
	Context            Attributes         `json:"context,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// Validate checks the closed enums and the open context maps at the boundary.
func (a *UsageAlert) Validate() error {
	if strings.TrimSpace(a.AlertID) == "" {
		return ErrInvalidInput
	}
	if _, ok := knownMetricTypes[a.MetricType]; !ok {
		return ErrInvalidInput
	}
	if _, ok := knownSeverities[a.Severity]; !ok {
		return ErrInvalidInput
	}
	if a.MetricData.MetricName == "" {
		return ErrInvalidInput
	}
	if err := ValidateAttributes(a.Context); err != nil {
		return err
	}
	return ValidateAttributes(a.MetricData.Context)
}

// TriggersUpsell decides whether this alert warrants an upsell run:
// high-impact severity, a high-value measurement, or a revenue-linked metric.
func (a *UsageAlert) TriggersUpsell() bool {
	if a.Severity == SeverityHigh || a.Severity == SeverityCritical {
		return true
	}
	if a.MetricData.CurrentValue > 1000 {
		return true
	}
	switch a.MetricType {
	case MetricTradeVolume, MetricTradeValue, MetricBalanceChange:
		return true
	}
	return false
}
