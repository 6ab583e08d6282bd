package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
	"github.com/easytrade/upsell-orchestrator/internal/ports"
)

// Advance drives one claimed run forward until it suspends, reschedules for a
// retry, or reaches a terminal state. It is safe to call again on the same run
// after a crash: every side-effecting step persists its outcome on the row
// before the state advances, so re-entry skips what already happened.
func (s *Service) Advance(ctx context.Context, run *domain.Run) error {
	for {
		if run.Terminal() {
			return nil
		}
		if run.CancelRequested {
			return s.finalize(ctx, run, domain.StatusCancelled, "Cancelled by operator request.")
		}

		var (
			suspend bool
			err     error
		)
		switch run.State {
		case domain.RunStateStarted:
			err = s.transition(ctx, run, domain.RunStateFetchingData)
		case domain.RunStateFetchingData:
			suspend, err = s.stepFetchData(ctx, run)
		case domain.RunStateAnalyzing:
			err = s.stepAnalyze(ctx, run)
		case domain.RunStateNotifyingCustomer:
			suspend, err = s.stepNotifyCustomer(ctx, run)
		case domain.RunStateNotifyingTeam:
			suspend, err = s.stepNotifyTeam(ctx, run)
		case domain.RunStateAwaitingReply:
			suspend, err = s.stepResolveReply(ctx, run)
		case domain.RunStateScheduling:
			suspend, err = s.stepSchedule(ctx, run)
		default:
			return s.fail(ctx, run, fmt.Sprintf("unknown run state %q", run.State))
		}
		if err != nil {
			return err
		}
		if suspend {
			return nil
		}
	}
}

// stepFetchData loads the usage and contract snapshots onto the run. Missing
// usage falls back to conservative defaults; a missing contract is a terminal
// business outcome, not an error.
func (s *Service) stepFetchData(ctx context.Context, run *domain.Run) (bool, error) {
	if run.Usage == nil {
		snap, err := s.fetchUsage(ctx, run)
		if err != nil {
			if domain.IsTransient(err) && run.StepAttempts+1 < s.cfg.MaxStepAttempts {
				return true, s.retryLater(ctx, run, "fetch_usage", err)
			}
			// Usage is advisory: after retries are spent the run proceeds
			// on the default snapshot instead of failing.
			s.logger.WarnContext(ctx, "usage lookup failed, using defaults",
				"operation", "fetch_usage", "outcome", "fallback",
				"run_id", run.RunID, "error", err)
			def := domain.DefaultUsageSnapshot(run.AccountID, run.MetricType)
			snap = &def
		}
		run.Usage = snap
		run.StepAttempts = 0
		if err := s.persist(ctx, run); err != nil {
			return false, err
		}
	}

	if run.Contract == nil {
		snap, err := s.fetchContract(ctx, run)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return true, s.finalize(ctx, run, domain.StatusNoContract,
				fmt.Sprintf("No contract on file for account %s.", run.AccountID))
		case err != nil:
			if domain.IsTransient(err) && run.StepAttempts+1 < s.cfg.MaxStepAttempts {
				return true, s.retryLater(ctx, run, "fetch_contract", err)
			}
			return true, s.fail(ctx, run, fmt.Sprintf("contract lookup failed: %v", err))
		}
		run.Contract = snap
		run.StepAttempts = 0
	}

	return false, s.transition(ctx, run, domain.RunStateAnalyzing)
}

func (s *Service) fetchUsage(ctx context.Context, run *domain.Run) (*domain.UsageSnapshot, error) {
	if !s.features.Enabled(ctx, ports.FeatureUsageLookup) {
		def := domain.DefaultUsageSnapshot(run.AccountID, run.MetricType)
		return &def, nil
	}
	snap, err := s.usage.Latest(ctx, run.AccountID)
	if errors.Is(err, domain.ErrNotFound) {
		def := domain.DefaultUsageSnapshot(run.AccountID, run.MetricType)
		return &def, nil
	}
	return snap, err
}

func (s *Service) fetchContract(ctx context.Context, run *domain.Run) (*domain.ContractSnapshot, error) {
	if !s.features.Enabled(ctx, ports.FeatureContractLookup) {
		snap := domain.DefaultContractSnapshot(run.AccountID)
		return &snap, nil
	}
	contract, err := s.contracts.GetByAccount(ctx, run.AccountID)
	if err != nil {
		return nil, err
	}
	snap := contract.Snapshot()
	return &snap, nil
}

// stepAnalyze produces the recommendation exactly once per run. The
// recommender never fails the run: any error collapses to the rule-based plan.
func (s *Service) stepAnalyze(ctx context.Context, run *domain.Run) error {
	if run.Plan == nil {
		plan := s.recommendPlan(ctx, run)
		run.Plan = &plan
	}
	return s.transition(ctx, run, domain.RunStateNotifyingCustomer)
}

func (s *Service) recommendPlan(ctx context.Context, run *domain.Run) domain.UpsellPlan {
	if !s.features.Enabled(ctx, ports.FeatureLLMRecommendation) || s.recommender == nil {
		return domain.FallbackPlan(*run.Usage, *run.Contract)
	}
	plan, err := s.recommender.RecommendPlan(ctx, *run.Usage, *run.Contract)
	if err != nil {
		s.logger.WarnContext(ctx, "recommender unavailable, using rule-based plan",
			"operation", "analyze", "outcome", "fallback",
			"run_id", run.RunID, "error", err)
		return domain.FallbackPlan(*run.Usage, *run.Contract)
	}
	return plan
}

func (s *Service) stepNotifyCustomer(ctx context.Context, run *domain.Run) (bool, error) {
	if run.EmailOutcome == domain.StepPending {
		outcome, retry, err := s.deliverCustomerMessage(ctx, run)
		if retry {
			return true, s.retryLater(ctx, run, "notify_customer", err)
		}
		run.EmailOutcome = outcome
		run.StepAttempts = 0
	}
	return false, s.transition(ctx, run, domain.RunStateNotifyingTeam)
}

func (s *Service) deliverCustomerMessage(ctx context.Context, run *domain.Run) (domain.StepOutcome, bool, error) {
	if !s.features.Enabled(ctx, ports.FeatureEmailSending) || s.messenger == nil {
		return domain.StepSkipped, false, nil
	}
	outcome, err := s.messenger.SendCustomerMessage(ctx, run.Contract.Contact, *run.Plan, *run.Usage, *run.Contract)
	if err != nil {
		if domain.IsTransient(err) && run.StepAttempts+1 < s.cfg.MaxStepAttempts {
			return domain.StepPending, true, err
		}
		// Notification failures never fail the run; the skip is recorded
		// on the opportunity so the team can follow up manually.
		s.logger.ErrorContext(ctx, "customer message not delivered",
			"operation", "notify_customer", "outcome", "skipped",
			"run_id", run.RunID, "error", err)
		return domain.StepSkipped, false, nil
	}
	return outcome, false, nil
}

func (s *Service) stepNotifyTeam(ctx context.Context, run *domain.Run) (bool, error) {
	if run.TeamOutcome == domain.StepPending {
		outcome, retry, err := s.postTeamSummary(ctx, run)
		if retry {
			return true, s.retryLater(ctx, run, "notify_team", err)
		}
		run.TeamOutcome = outcome
		run.StepAttempts = 0
	}

	if run.AutomationLevel == domain.AutomationFull {
		// Unattended runs imply an affirmative decision and proceed
		// straight to scheduling without waiting.
		run.ReplyStatus = domain.ReplyAutoApproved
		return false, s.transition(ctx, run, domain.RunStateScheduling)
	}

	deadline := s.nowFn().Add(s.cfg.ReplyTimeout)
	run.State = domain.RunStateAwaitingReply
	run.ReplyDeadline = &deadline
	run.WakeAt = deadline
	run.StepAttempts = 0
	if err := s.persist(ctx, run); err != nil {
		return true, err
	}
	s.logger.InfoContext(ctx, "run suspended awaiting customer reply",
		"operation", "await_reply", "outcome", "suspended",
		"run_id", run.RunID, "reply_deadline", deadline)
	return true, nil
}

func (s *Service) postTeamSummary(ctx context.Context, run *domain.Run) (domain.StepOutcome, bool, error) {
	if !s.features.Enabled(ctx, ports.FeatureTeamChatPosting) || s.teamNotifier == nil {
		return domain.StepSkipped, false, nil
	}
	outcome, err := s.teamNotifier.PostTeamSummary(ctx, run.RunID.String(), *run.Plan, *run.Usage, *run.Contract, run.EmailOutcome)
	if err != nil {
		if domain.IsTransient(err) && run.StepAttempts+1 < s.cfg.MaxStepAttempts {
			return domain.StepPending, true, err
		}
		s.logger.ErrorContext(ctx, "team summary not posted",
			"operation", "notify_team", "outcome", "skipped",
			"run_id", run.RunID, "error", err)
		return domain.StepSkipped, false, nil
	}
	return outcome, false, nil
}

// stepResolveReply runs when an awaiting run is woken, either by a recorded
// reply or by its deadline. A pending reply past the deadline becomes a
// timeout; affirmative replies proceed to scheduling, everything else
// completes the run without a meeting.
func (s *Service) stepResolveReply(ctx context.Context, run *domain.Run) (bool, error) {
	switch run.ReplyStatus {
	case domain.ReplyYes:
		return false, s.transition(ctx, run, domain.RunStateScheduling)
	case domain.ReplyNo, domain.ReplyMaybe:
		return true, s.finalize(ctx, run, domain.StatusCompleted, "")
	case domain.ReplyPending:
		if run.ReplyDeadline != nil && !s.nowFn().Before(*run.ReplyDeadline) {
			// Record the timeout through the same conditional write customer
			// replies use. If a reply beat the deadline to the row, the ack
			// the API already returned stands and the reply is honored.
			switch err := s.runs.AcceptReply(ctx, run.RunID, domain.ReplyTimeout, s.nowFn()); {
			case errors.Is(err, domain.ErrReplyNotAccepted):
				fresh, getErr := s.runs.Get(ctx, run.RunID)
				if getErr != nil {
					return true, getErr
				}
				run.ReplyStatus = fresh.ReplyStatus
				return false, nil
			case err != nil:
				return true, err
			}
			run.ReplyStatus = domain.ReplyTimeout
			return true, s.finalize(ctx, run, domain.StatusCompleted, "")
		}
		// Woken early; go back to sleep until the deadline.
		if run.ReplyDeadline != nil {
			run.WakeAt = *run.ReplyDeadline
		} else {
			run.WakeAt = s.nowFn().Add(s.cfg.ReplyTimeout)
		}
		return true, s.persist(ctx, run)
	default:
		return false, s.transition(ctx, run, domain.RunStateScheduling)
	}
}

func (s *Service) stepSchedule(ctx context.Context, run *domain.Run) (bool, error) {
	if run.MeetingOutcome == domain.StepPending {
		ref, outcome, retry, err := s.scheduleMeeting(ctx, run)
		if retry {
			return true, s.retryLater(ctx, run, "schedule_meeting", err)
		}
		run.MeetingOutcome = outcome
		run.MeetingRef = ref
		run.StepAttempts = 0
	}
	return true, s.finalize(ctx, run, domain.StatusCompleted, "")
}

func (s *Service) scheduleMeeting(ctx context.Context, run *domain.Run) (string, domain.StepOutcome, bool, error) {
	if !s.features.Enabled(ctx, ports.FeatureMeetingScheduling) || s.scheduler == nil {
		return "", domain.StepSkipped, false, nil
	}
	ref, outcome, err := s.scheduler.ScheduleMeeting(ctx, run.Contract.Contact, run.AccountID, run.Plan.RecommendedPlan)
	if err != nil {
		if domain.IsTransient(err) && run.StepAttempts+1 < s.cfg.MaxStepAttempts {
			return "", domain.StepPending, true, err
		}
		s.logger.ErrorContext(ctx, "meeting not scheduled",
			"operation", "schedule_meeting", "outcome", "skipped",
			"run_id", run.RunID, "error", err)
		return "", domain.StepSkipped, false, nil
	}
	return ref, outcome, false, nil
}

// finalize writes the opportunity record, emits the terminal events, and moves
// the run to its resting state. The record insert is idempotent by run id, so
// a crash between the insert and the state update cannot duplicate it.
func (s *Service) finalize(ctx context.Context, run *domain.Run, status domain.TerminalStatus, notes string) error {
	now := s.nowFn()
	rec := s.buildRecord(run, status, notes, now)
	if err := s.opportunities.Record(ctx, rec); err != nil {
		if domain.IsTransient(err) {
			return s.retryLater(ctx, run, "record_opportunity", err)
		}
		return err
	}
	s.emitOpportunityRecorded(ctx, rec)

	if status == domain.StatusFailed {
		run.State = domain.RunStateFailed
	} else {
		run.State = domain.RunStateCompleted
	}
	run.CompletedAt = &now
	if err := s.persist(ctx, run); err != nil {
		return err
	}
	s.emitRunCompleted(ctx, run, status)
	s.logger.InfoContext(ctx, "run reached terminal state",
		"operation", "finalize", "outcome", string(status),
		"run_id", run.RunID, "reply_status", run.ReplyStatus)
	return nil
}

func (s *Service) fail(ctx context.Context, run *domain.Run, reason string) error {
	run.FailureReason = reason
	return s.finalize(ctx, run, domain.StatusFailed, reason)
}

func (s *Service) buildRecord(run *domain.Run, status domain.TerminalStatus, notes string, now time.Time) domain.OpportunityRecord {
	rec := domain.OpportunityRecord{
		RunID:           run.RunID.String(),
		AccountID:       run.AccountID,
		EventID:         run.EventID,
		OpportunityType: "usage_based_upsell",
		EmailOutcome:    run.EmailOutcome,
		TeamOutcome:     run.TeamOutcome,
		ReplyStatus:     run.ReplyStatus,
		MeetingOutcome:  run.MeetingOutcome,
		MeetingRef:      run.MeetingRef,
		Status:          status,
		Notes:           notes,
		CreatedAt:       now,
	}
	if run.Plan != nil {
		rec.RecommendedPlan = run.Plan.RecommendedPlan
		rec.EstimatedValue = run.Plan.EstimatedValue
		if rec.Notes == "" {
			rec.Notes = fmt.Sprintf("Recommended %s based on %s usage.", run.Plan.RecommendedPlan, run.MetricType)
		}
	}
	// A meeting that was never attempted is recorded as skipped so the
	// audit row has no blank outcomes.
	if rec.MeetingOutcome == domain.StepPending {
		rec.MeetingOutcome = domain.StepSkipped
	}
	if rec.EmailOutcome == domain.StepPending {
		rec.EmailOutcome = domain.StepSkipped
	}
	if rec.TeamOutcome == domain.StepPending {
		rec.TeamOutcome = domain.StepSkipped
	}
	return rec
}

// transition moves the run to the next state, resets the attempt counter, and
// marks it immediately runnable.
func (s *Service) transition(ctx context.Context, run *domain.Run, next domain.RunState) error {
	run.State = next
	run.StepAttempts = 0
	run.WakeAt = s.nowFn()
	return s.persist(ctx, run)
}

// retryLater reschedules the run with bounded exponential backoff after a
// transient step failure.
func (s *Service) retryLater(ctx context.Context, run *domain.Run, operation string, cause error) error {
	run.StepAttempts++
	delay := retryDelay(s.cfg.RetryBaseDelay, s.cfg.RetryMaxDelay, run.StepAttempts)
	run.WakeAt = s.nowFn().Add(delay)
	if err := s.persist(ctx, run); err != nil {
		return err
	}
	s.logger.WarnContext(ctx, "transient step failure, retry scheduled",
		"operation", operation, "outcome", "retry",
		"run_id", run.RunID, "attempt", run.StepAttempts,
		"retry_in", delay.String(), "error", cause)
	return nil
}

func (s *Service) persist(ctx context.Context, run *domain.Run) error {
	run.UpdatedAt = s.nowFn()
	return s.runs.Update(ctx, run)
}

// retryDelay doubles the base per attempt up to the configured ceiling.
func retryDelay(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
