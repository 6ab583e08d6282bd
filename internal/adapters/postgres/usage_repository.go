package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

type usageRepository struct {
	db *gorm.DB
}

// Put appends a metrics row; history is kept so Latest always reflects the
// most recent ingestion.
func (r *usageRepository) Put(ctx context.Context, snap domain.UsageSnapshot) error {
	row, err := fromDomainUsage(snap, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Transient(err)
	}
	return nil
}

func (r *usageRepository) Latest(ctx context.Context, accountID string) (*domain.UsageSnapshot, error) {
	var row usageModel
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Transient(err)
	}
	return toDomainUsage(row)
}
