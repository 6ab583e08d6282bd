package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

type contractRepository struct {
	db *gorm.DB
}

func (r *contractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	row, err := fromDomainContract(contract)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return domain.Transient(err)
	}
	return nil
}

// GetByAccount returns the newest contract for the account; there is usually
// exactly one.
func (r *contractRepository) GetByAccount(ctx context.Context, accountID string) (*domain.Contract, error) {
	var row contractModel
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Transient(err)
	}
	return toDomainContract(row)
}

func (r *contractRepository) Update(ctx context.Context, contract *domain.Contract) error {
	row, err := fromDomainContract(contract)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(&contractModel{}).
		Where("contract_id = ?", row.ContractID).
		Select("*").
		Omit("contract_id", "created_at").
		Updates(&row)
	if res.Error != nil {
		return domain.Transient(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
