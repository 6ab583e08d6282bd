package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

type runRepository struct {
	db *gorm.DB
}

var terminalStates = []string{
	string(domain.RunStateCompleted),
	string(domain.RunStateFailed),
}

func (r *runRepository) Create(ctx context.Context, run *domain.Run) error {
	rec, err := fromDomainRun(run)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return domain.Transient(err)
	}
	return nil
}

func (r *runRepository) Get(ctx context.Context, runID uuid.UUID) (*domain.Run, error) {
	var rec runModel
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID.String()).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Transient(err)
	}
	return toDomainRun(rec)
}

func (r *runRepository) Update(ctx context.Context, run *domain.Run) error {
	rec, err := fromDomainRun(run)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(&runModel{}).
		Where("run_id = ?", rec.RunID).
		Select("*").
		Omit("run_id", "claim_token", "claim_until", "cancel_requested", "created_at").
		Updates(&rec)
	if res.Error != nil {
		return domain.Transient(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClaimDue marks up to limit due, unclaimed runs with the worker's claim token
// and returns them. SKIP LOCKED keeps concurrent workers from blocking on the
// same batch.
func (r *runRepository) ClaimDue(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]*domain.Run, error) {
	if limit <= 0 {
		return nil, nil
	}
	if claimToken == "" {
		return nil, fmt.Errorf("claim token is required")
	}

	now := time.Now().UTC()
	var rows []runModel
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subquery := claimLock(tx.Model(&runModel{}).
			Select("run_id").
			Where("state NOT IN ?", terminalStates).
			Where("wake_at <= ?", now).
			Where("claim_until IS NULL OR claim_until < ?", now).
			Order("wake_at ASC").
			Limit(limit))

		if err := tx.Model(&runModel{}).
			Where("run_id IN (?)", subquery).
			Updates(map[string]any{
				"claim_token": claimToken,
				"claim_until": claimUntil,
			}).Error; err != nil {
			return err
		}

		return tx.Where("claim_token = ?", claimToken).
			Where("state NOT IN ?", terminalStates).
			Order("wake_at ASC").
			Find(&rows).Error
	}); err != nil {
		return nil, domain.Transient(err)
	}

	runs := make([]*domain.Run, 0, len(rows))
	for _, row := range rows {
		run, err := toDomainRun(row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (r *runRepository) Release(ctx context.Context, runID uuid.UUID, claimToken string) error {
	err := r.db.WithContext(ctx).
		Model(&runModel{}).
		Where("run_id = ?", runID.String()).
		Where("claim_token = ?", claimToken).
		Updates(map[string]any{
			"claim_token": nil,
			"claim_until": nil,
		}).Error
	if err != nil {
		return domain.Transient(err)
	}
	return nil
}

// AcceptReply is a single conditional update so concurrent signals for the
// same run can never both win.
func (r *runRepository) AcceptReply(ctx context.Context, runID uuid.UUID, reply domain.ReplyStatus, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&runModel{}).
		Where("run_id = ?", runID.String()).
		Where("state = ?", string(domain.RunStateAwaitingReply)).
		Where("reply_status = ?", string(domain.ReplyPending)).
		Updates(map[string]any{
			"reply_status": string(reply),
			"wake_at":      now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return domain.Transient(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&runModel{}).
			Where("run_id = ?", runID.String()).Count(&count).Error; err != nil {
			return domain.Transient(err)
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrReplyNotAccepted
	}
	return nil
}

func (r *runRepository) RequestCancel(ctx context.Context, runID uuid.UUID, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&runModel{}).
		Where("run_id = ?", runID.String()).
		Where("state NOT IN ?", terminalStates).
		Updates(map[string]any{
			"cancel_requested": true,
			"wake_at":          now,
			"updated_at":       now,
		})
	if res.Error != nil {
		return domain.Transient(res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&runModel{}).
			Where("run_id = ?", runID.String()).Count(&count).Error; err != nil {
			return domain.Transient(err)
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrRunTerminal
	}
	return nil
}
