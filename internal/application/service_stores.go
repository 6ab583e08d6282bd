package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
	"github.com/easytrade/upsell-orchestrator/internal/ports"
)

// PutUsage stores ingested usage metrics so the fetch-usage activity can serve
// them to later runs for the same account.
func (s *Service) PutUsage(ctx context.Context, snap domain.UsageSnapshot) error {
	if strings.TrimSpace(snap.AccountID) == "" {
		return domain.ErrInvalidInput
	}
	switch snap.Trend {
	case domain.TrendIncreasing, domain.TrendDecreasing, domain.TrendStable:
	default:
		return domain.ErrInvalidInput
	}
	switch snap.Period {
	case domain.PeriodDaily, domain.PeriodWeekly, domain.PeriodMonthly:
	default:
		return domain.ErrInvalidInput
	}
	if err := domain.ValidateAttributes(snap.Context); err != nil {
		return err
	}
	return s.usage.Put(ctx, snap)
}

func (s *Service) GetUsage(ctx context.Context, accountID string) (domain.UsageSnapshot, error) {
	snap, err := s.usage.Latest(ctx, accountID)
	if err != nil {
		return domain.UsageSnapshot{}, err
	}
	return *snap, nil
}

func (s *Service) CreateContract(ctx context.Context, contract *domain.Contract) (*domain.Contract, error) {
	if err := contract.Validate(); err != nil {
		return nil, err
	}
	now := s.nowFn()
	if contract.ContractID == "" {
		contract.ContractID = fmt.Sprintf("contract_%s_%s", now.Format("20060102_150405"), uuid.NewString())
	}
	if contract.Status == "" {
		contract.Status = domain.ContractActive
	}
	if contract.EndDate.IsZero() {
		contract.EndDate = now.AddDate(1, 0, 0)
	}
	if contract.RenewalDate.IsZero() {
		contract.RenewalDate = contract.EndDate.AddDate(0, -1, 0)
	}
	contract.CreatedAt = now
	contract.UpdatedAt = now
	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *Service) GetContract(ctx context.Context, accountID string) (*domain.Contract, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.contracts.GetByAccount(ctx, accountID)
}

// Features returns the live toggle snapshot.
func (s *Service) Features(ctx context.Context) (map[string]bool, error) {
	return s.features.Snapshot(ctx)
}

// SetFeature flips one toggle. The change applies on the next activity
// invocation that consults it.
func (s *Service) SetFeature(ctx context.Context, name string, enabled bool) error {
	if _, ok := ports.KnownFeatures[name]; !ok {
		return domain.ErrNotFound
	}
	if err := s.features.Set(ctx, name, enabled); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "feature toggled",
		"operation", "set_feature",
		"outcome", "success",
		"feature", name,
		"enabled", enabled,
		"effective_at", s.nowFn().Format(time.RFC3339),
	)
	return nil
}
