package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

func marshalJSON(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	return &s, nil
}

func unmarshalJSON[T any](raw *string) (*T, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal([]byte(*raw), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func fromDomainRun(run *domain.Run) (runModel, error) {
	usage, err := marshalJSON(run.Usage)
	if err != nil {
		return runModel{}, fmt.Errorf("marshal usage snapshot: %w", err)
	}
	contract, err := marshalJSON(run.Contract)
	if err != nil {
		return runModel{}, fmt.Errorf("marshal contract snapshot: %w", err)
	}
	plan, err := marshalJSON(run.Plan)
	if err != nil {
		return runModel{}, fmt.Errorf("marshal plan: %w", err)
	}
	return runModel{
		RunID:            run.RunID.String(),
		AccountID:        run.AccountID,
		EventID:          run.EventID,
		AutomationLevel:  string(run.AutomationLevel),
		MetricType:       run.MetricType,
		State:            string(run.State),
		ReplyStatus:      string(run.ReplyStatus),
		UsageSnapshot:    usage,
		ContractSnapshot: contract,
		Plan:             plan,
		EmailOutcome:     string(run.EmailOutcome),
		TeamOutcome:      string(run.TeamOutcome),
		MeetingOutcome:   string(run.MeetingOutcome),
		MeetingRef:       run.MeetingRef,
		WakeAt:           run.WakeAt,
		ReplyDeadline:    run.ReplyDeadline,
		StepAttempts:     run.StepAttempts,
		CancelRequested:  run.CancelRequested,
		FailureReason:    run.FailureReason,
		CreatedAt:        run.CreatedAt,
		UpdatedAt:        run.UpdatedAt,
		CompletedAt:      run.CompletedAt,
	}, nil
}

func toDomainRun(row runModel) (*domain.Run, error) {
	runID, err := uuid.Parse(row.RunID)
	if err != nil {
		return nil, fmt.Errorf("parse run id %q: %w", row.RunID, err)
	}
	usage, err := unmarshalJSON[domain.UsageSnapshot](row.UsageSnapshot)
	if err != nil {
		return nil, fmt.Errorf("unmarshal usage snapshot: %w", err)
	}
	contract, err := unmarshalJSON[domain.ContractSnapshot](row.ContractSnapshot)
	if err != nil {
		return nil, fmt.Errorf("unmarshal contract snapshot: %w", err)
	}
	plan, err := unmarshalJSON[domain.UpsellPlan](row.Plan)
	if err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	return &domain.Run{
		RunID:           runID,
		AccountID:       row.AccountID,
		EventID:         row.EventID,
		AutomationLevel: domain.AutomationLevel(row.AutomationLevel),
		MetricType:      row.MetricType,
		State:           domain.RunState(row.State),
		ReplyStatus:     domain.ReplyStatus(row.ReplyStatus),
		Usage:           usage,
		Contract:        contract,
		Plan:            plan,
		EmailOutcome:    domain.StepOutcome(row.EmailOutcome),
		TeamOutcome:     domain.StepOutcome(row.TeamOutcome),
		MeetingOutcome:  domain.StepOutcome(row.MeetingOutcome),
		MeetingRef:      row.MeetingRef,
		WakeAt:          row.WakeAt,
		ReplyDeadline:   row.ReplyDeadline,
		StepAttempts:    row.StepAttempts,
		CancelRequested: row.CancelRequested,
		FailureReason:   row.FailureReason,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		CompletedAt:     row.CompletedAt,
	}, nil
}

func fromDomainOpportunity(rec domain.OpportunityRecord) opportunityModel {
	return opportunityModel{
		RunID:           rec.RunID,
		AccountID:       rec.AccountID,
		EventID:         rec.EventID,
		OpportunityType: rec.OpportunityType,
		RecommendedPlan: rec.RecommendedPlan,
		EstimatedValue:  rec.EstimatedValue,
		EmailOutcome:    string(rec.EmailOutcome),
		TeamOutcome:     string(rec.TeamOutcome),
		ReplyStatus:     string(rec.ReplyStatus),
		MeetingOutcome:  string(rec.MeetingOutcome),
		MeetingRef:      rec.MeetingRef,
		Status:          string(rec.Status),
		Notes:           rec.Notes,
		CreatedAt:       rec.CreatedAt,
	}
}

func toDomainOpportunity(row opportunityModel) domain.OpportunityRecord {
	return domain.OpportunityRecord{
		RunID:           row.RunID,
		AccountID:       row.AccountID,
		EventID:         row.EventID,
		OpportunityType: row.OpportunityType,
		RecommendedPlan: row.RecommendedPlan,
		EstimatedValue:  row.EstimatedValue,
		EmailOutcome:    domain.StepOutcome(row.EmailOutcome),
		TeamOutcome:     domain.StepOutcome(row.TeamOutcome),
		ReplyStatus:     domain.ReplyStatus(row.ReplyStatus),
		MeetingOutcome:  domain.StepOutcome(row.MeetingOutcome),
		MeetingRef:      row.MeetingRef,
		Status:          domain.TerminalStatus(row.Status),
		Notes:           row.Notes,
		CreatedAt:       row.CreatedAt,
	}
}

func fromDomainContract(c *domain.Contract) (contractModel, error) {
	features, err := marshalJSON(c.Features)
	if err != nil {
		return contractModel{}, err
	}
	limits, err := marshalJSON(c.UsageLimits)
	if err != nil {
		return contractModel{}, err
	}
	primary, err := marshalJSON(c.PrimaryContact)
	if err != nil {
		return contractModel{}, err
	}
	billing, err := marshalJSON(c.BillingContact)
	if err != nil {
		return contractModel{}, err
	}
	return contractModel{
		ContractID:     c.ContractID,
		AccountID:      c.AccountID,
		ContractType:   string(c.ContractType),
		Status:         string(c.Status),
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
		RenewalDate:    c.RenewalDate,
		BaseMonthlyFee: c.BaseMonthlyFee,
		AutoRenewal:    c.AutoRenewal,
		Features:       features,
		UsageLimits:    limits,
		PrimaryContact: primary,
		BillingContact: billing,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}, nil
}

func toDomainContract(row contractModel) (*domain.Contract, error) {
	features, err := unmarshalJSON[[]string](row.Features)
	if err != nil {
		return nil, err
	}
	limits, err := unmarshalJSON[domain.Attributes](row.UsageLimits)
	if err != nil {
		return nil, err
	}
	primary, err := unmarshalJSON[domain.Contact](row.PrimaryContact)
	if err != nil {
		return nil, err
	}
	billing, err := unmarshalJSON[domain.Contact](row.BillingContact)
	if err != nil {
		return nil, err
	}
	c := &domain.Contract{
		ContractID:     row.ContractID,
		AccountID:      row.AccountID,
		ContractType:   domain.ContractType(row.ContractType),
		Status:         domain.ContractStatus(row.Status),
		StartDate:      row.StartDate,
		EndDate:        row.EndDate,
		RenewalDate:    row.RenewalDate,
		BaseMonthlyFee: row.BaseMonthlyFee,
		AutoRenewal:    row.AutoRenewal,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if features != nil {
		c.Features = *features
	}
	if limits != nil {
		c.UsageLimits = *limits
	}
	if primary != nil {
		c.PrimaryContact = *primary
	}
	if billing != nil {
		c.BillingContact = *billing
	}
	return c, nil
}

func fromDomainUsage(snap domain.UsageSnapshot, at time.Time) (usageModel, error) {
	ctxAttrs, err := marshalJSON(snap.Context)
	if err != nil {
		return usageModel{}, err
	}
	return usageModel{
		ID:                uuid.NewString(),
		AccountID:         snap.AccountID,
		CurrentUsage:      snap.CurrentUsage,
		Trend:             string(snap.Trend),
		Period:            string(snap.Period),
		ThresholdExceeded: snap.ThresholdExceeded,
		MetricType:        snap.MetricType,
		Context:           ctxAttrs,
		CreatedAt:         at,
	}, nil
}

func toDomainUsage(row usageModel) (*domain.UsageSnapshot, error) {
	ctxAttrs, err := unmarshalJSON[domain.Attributes](row.Context)
	if err != nil {
		return nil, err
	}
	snap := &domain.UsageSnapshot{
		AccountID:         row.AccountID,
		CurrentUsage:      row.CurrentUsage,
		Trend:             domain.UsageTrend(row.Trend),
		Period:            domain.UsagePeriod(row.Period),
		ThresholdExceeded: row.ThresholdExceeded,
		MetricType:        row.MetricType,
	}
	if ctxAttrs != nil {
		snap.Context = *ctxAttrs
	}
	return snap, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
