package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

type opportunityRepository struct {
	db *gorm.DB
}

// Record inserts the terminal audit row. The run id is the primary key and
// conflicts are ignored, which makes the write idempotent under engine retries.
func (r *opportunityRepository) Record(ctx context.Context, rec domain.OpportunityRecord) error {
	row := fromDomainOpportunity(rec)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return domain.Transient(err)
	}
	return nil
}

func (r *opportunityRepository) GetByRun(ctx context.Context, runID string) (domain.OpportunityRecord, error) {
	var row opportunityModel
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.OpportunityRecord{}, domain.ErrNotFound
		}
		return domain.OpportunityRecord{}, domain.Transient(err)
	}
	return toDomainOpportunity(row), nil
}

func (r *opportunityRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.OpportunityRecord, error) {
	var rows []opportunityModel
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, domain.Transient(err)
	}
	recs := make([]domain.OpportunityRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, toDomainOpportunity(row))
	}
	return recs, nil
}
