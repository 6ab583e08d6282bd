package application

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

// StartRun creates a durable run row in the started state and returns its id
// synchronously. The worker picks it up on its next claim cycle; the caller
// never waits for the state machine.
func (s *Service) StartRun(ctx context.Context, in StartRunInput) (StartRunResult, error) {
	if strings.TrimSpace(in.AccountID) == "" || strings.TrimSpace(in.EventID) == "" {
		return StartRunResult{}, domain.ErrInvalidInput
	}
	if _, err := domain.ParseAutomationLevel(string(in.AutomationLevel)); err != nil {
		return StartRunResult{}, err
	}
	metricType := in.MetricType
	if metricType == "" {
		metricType = string(domain.MetricTradeVolume)
	}

	now := s.nowFn()
	run := &domain.Run{
		RunID:           uuid.New(),
		AccountID:       in.AccountID,
		EventID:         in.EventID,
		AutomationLevel: in.AutomationLevel,
		MetricType:      metricType,
		State:           domain.RunStateStarted,
		ReplyStatus:     domain.ReplyPending,
		WakeAt:          now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return StartRunResult{}, err
	}
	s.emitRunStarted(ctx, run)
	s.logger.InfoContext(ctx, "run started",
		"operation", "start_run",
		"outcome", "success",
		"run_id", run.RunID.String(),
		"account_id", run.AccountID,
		"automation_level", string(run.AutomationLevel),
	)
	return StartRunResult{RunID: run.RunID}, nil
}

func (s *Service) GetRun(ctx context.Context, runID uuid.UUID) (RunView, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return RunView{}, err
	}
	return runView(run), nil
}

// SubmitReply records a customer reply for a suspended run. Replies are
// rejected as a no-op whenever the run is not currently awaiting one, which
// covers early, late, and duplicate signals alike.
func (s *Service) SubmitReply(ctx context.Context, runID uuid.UUID, rawReply string) error {
	reply, err := domain.ParseReply(strings.ToLower(strings.TrimSpace(rawReply)))
	if err != nil {
		return err
	}
	if err := s.runs.AcceptReply(ctx, runID, reply, s.nowFn()); err != nil {
		s.logger.WarnContext(ctx, "reply not accepted",
			"operation", "submit_reply",
			"outcome", "failure",
			"run_id", runID.String(),
			"reply", string(reply),
			"error", err,
		)
		return err
	}
	s.logger.InfoContext(ctx, "reply accepted",
		"operation", "submit_reply",
		"outcome", "success",
		"run_id", runID.String(),
		"reply", string(reply),
	)
	return nil
}

// CancelRun flags the run for cancellation. The worker short-circuits it to a
// terminal record on its next claim without firing remaining notifications.
func (s *Service) CancelRun(ctx context.Context, runID uuid.UUID) error {
	if err := s.runs.RequestCancel(ctx, runID, s.nowFn()); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "run cancellation requested",
		"operation", "cancel_run",
		"outcome", "success",
		"run_id", runID.String(),
	)
	return nil
}

func (s *Service) GetOpportunity(ctx context.Context, runID string) (domain.OpportunityRecord, error) {
	return s.opportunities.GetByRun(ctx, runID)
}

func (s *Service) ListOpportunities(ctx context.Context, accountID string, limit int) ([]domain.OpportunityRecord, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.opportunities.ListByAccount(ctx, accountID, limit)
}
