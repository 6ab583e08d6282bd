package application

import (
	"context"
	"encoding/json"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

// Event types drained from the outbox to the broker.
const (
	EventRunStarted          = "upsell.run.started"
	EventRunCompleted        = "upsell.run.completed"
	EventOpportunityRecorded = "upsell.opportunity.recorded"
)

// Event enqueueing is best-effort bookkeeping: a broken outbox must never fail
// the use-case that produced the event, so errors are logged and swallowed.

func (s *Service) emitRunStarted(ctx context.Context, run *domain.Run) {
	payload, _ := json.Marshal(map[string]any{
		"run_id":           run.RunID.String(),
		"account_id":       run.AccountID,
		"event_id":         run.EventID,
		"automation_level": run.AutomationLevel,
		"metric_type":      run.MetricType,
		"started_at":       run.CreatedAt,
	})
	s.enqueueEvent(ctx, EventRunStarted, run.AccountID, payload)
}

func (s *Service) emitRunCompleted(ctx context.Context, run *domain.Run, status domain.TerminalStatus) {
	payload, _ := json.Marshal(map[string]any{
		"run_id":       run.RunID.String(),
		"account_id":   run.AccountID,
		"event_id":     run.EventID,
		"status":       status,
		"reply_status": run.ReplyStatus,
		"completed_at": run.CompletedAt,
	})
	s.enqueueEvent(ctx, EventRunCompleted, run.AccountID, payload)
}

func (s *Service) emitOpportunityRecorded(ctx context.Context, rec domain.OpportunityRecord) {
	payload, _ := json.Marshal(rec)
	s.enqueueEvent(ctx, EventOpportunityRecorded, rec.AccountID, payload)
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, partitionKey string, payload []byte) {
	if s.outbox == nil {
		return
	}
	if err := s.outbox.Enqueue(ctx, eventType, partitionKey, payload); err != nil {
		s.logger.ErrorContext(ctx, "outbox enqueue failed",
			"operation", "enqueue_event",
			"outcome", "failure",
			"event_type", eventType,
			"error", err,
		)
	}
}
