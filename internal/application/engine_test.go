package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
	"github.com/easytrade/upsell-orchestrator/internal/ports"
)

func TestAdvanceHybridRunSuspendsThenSchedulesOnYes(t *testing.T) {
	t.Parallel()

	f := newFixture()
	runID := f.startRun(t, domain.AutomationHybrid)

	run := f.advance(t, runID)
	if run.State != domain.RunStateAwaitingReply {
		t.Fatalf("expected awaiting_reply, got %s", run.State)
	}
	if run.EmailOutcome != domain.StepDelivered {
		t.Fatalf("expected delivered email, got %q", run.EmailOutcome)
	}
	if run.TeamOutcome != domain.StepPosted {
		t.Fatalf("expected posted team summary, got %q", run.TeamOutcome)
	}
	if run.ReplyDeadline == nil {
		t.Fatalf("expected a reply deadline on the suspended run")
	}
	if got, want := *run.ReplyDeadline, f.now.Add(24*time.Hour); !got.Equal(want) {
		t.Fatalf("reply deadline = %v, want %v", got, want)
	}
	if f.scheduler.calls != 0 {
		t.Fatalf("meeting scheduled before reply: %d calls", f.scheduler.calls)
	}

	if err := f.svc.SubmitReply(context.Background(), runID, "yes"); err != nil {
		t.Fatalf("submit reply: %v", err)
	}
	run = f.advance(t, runID)

	if run.State != domain.RunStateCompleted {
		t.Fatalf("expected completed, got %s", run.State)
	}
	if run.MeetingOutcome != domain.StepScheduled || run.MeetingRef != "meeting_fixture" {
		t.Fatalf("expected scheduled meeting, got %q ref %q", run.MeetingOutcome, run.MeetingRef)
	}
	if f.scheduler.calls != 1 {
		t.Fatalf("scheduler calls = %d, want 1", f.scheduler.calls)
	}

	rec, err := f.opportunities.GetByRun(context.Background(), runID.String())
	if err != nil {
		t.Fatalf("get opportunity: %v", err)
	}
	if rec.Status != domain.StatusCompleted {
		t.Fatalf("record status = %s, want completed", rec.Status)
	}
	if rec.ReplyStatus != domain.ReplyYes {
		t.Fatalf("record reply = %s, want yes", rec.ReplyStatus)
	}
	if rec.RecommendedPlan != "Enterprise" || rec.EstimatedValue != 15000 {
		t.Fatalf("record plan = %s value %v", rec.RecommendedPlan, rec.EstimatedValue)
	}
}

func TestAdvanceFullAutomationNeverWaits(t *testing.T) {
	t.Parallel()

	f := newFixture()
	runID := f.startRun(t, domain.AutomationFull)

	run := f.advance(t, runID)

	if run.State != domain.RunStateCompleted {
		t.Fatalf("expected completed in one pass, got %s", run.State)
	}
	if run.ReplyStatus != domain.ReplyAutoApproved {
		t.Fatalf("reply status = %s, want auto_approved", run.ReplyStatus)
	}
	if run.ReplyDeadline != nil {
		t.Fatalf("unattended run must not carry a reply deadline")
	}
	if f.scheduler.calls != 1 {
		t.Fatalf("scheduler calls = %d, want 1", f.scheduler.calls)
	}

	rec, err := f.opportunities.GetByRun(context.Background(), runID.String())
	if err != nil {
		t.Fatalf("get opportunity: %v", err)
	}
	if rec.ReplyStatus != domain.ReplyAutoApproved || rec.MeetingOutcome != domain.StepScheduled {
		t.Fatalf("record reply %s meeting %s", rec.ReplyStatus, rec.MeetingOutcome)
	}
}

func TestAdvanceNegativeReplyCompletesWithoutMeeting(t *testing.T) {
	t.Parallel()

	f := newFixture()
	runID := f.startRun(t, domain.AutomationHybrid)
	f.advance(t, runID)

	if err := f.svc.SubmitReply(context.Background(), runID, "no"); err != nil {
		t.Fatalf("submit reply: %v", err)
	}
	run := f.advance(t, runID)

	if run.State != domain.RunStateCompleted {
		t.Fatalf("expected completed, got %s", run.State)
	}
	if f.scheduler.calls != 0 {
		t.Fatalf("no meeting expected, scheduler calls = %d", f.scheduler.calls)
	}
	rec, err := f.opportunities.GetByRun(context.Background(), runID.String())
	if err != nil {
		t.Fatalf("get opportunity: %v", err)
	}
	if rec.ReplyStatus != domain.ReplyNo || rec.MeetingOutcome != domain.StepSkipped {
		t.Fatalf("record reply %s meeting %s", rec.ReplyStatus, rec.MeetingOutcome)
	}
}

func TestAdvanceReplyDeadlineExpiryRecordsTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture()
	runID := f.startRun(t, domain.AutomationHuman)
	run := f.advance(t, runID)
	if run.State != domain.RunStateAwaitingReply {
		t.Fatalf("expected awaiting_reply, got %s", run.State)
	}

	f.now = f.now.Add(24*time.Hour + time.Minute)
	run = f.advance(t, runID)

	if run.State != domain.RunStateCompleted {
		t.Fatalf("expected completed after timeout, got %s", run.State)
	}
	if run.ReplyStatus != domain.ReplyTimeout {
		t.Fatalf("reply status = %s, want timeout", run.ReplyStatus)
	}
	if f.scheduler.calls != 0 {
		t.Fatalf("timeout must not schedule a meeting, calls = %d", f.scheduler.calls)
	}
}

func TestAdvanceReplyRacingTheDeadlineWins(t *testing.T) {
	t.Parallel()

	f := newFixture()
	runID := f.startRun(t, domain.AutomationHybrid)
	f.advance(t, runID)

	// The worker claims the run with the reply still pending, then a customer
	// reply lands before the worker resolves the deadline.
	claimed, err := f.runs.Get(context.Background(), runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if err := f.svc.SubmitReply(context.Background(), runID, "yes"); err != nil {
		t.Fatalf("submit reply: %v", err)
	}

	f.now = f.now.Add(24*time.Hour + time.Minute)
	if err := f.svc.Advance(context.Background(), claimed); err != nil {
		t.Fatalf("advance run: %v", err)
	}

	run, err := f.runs.Get(context.Background(), runID)
	if err != nil {
		t.Fatalf("get run after advance: %v", err)
	}
	if run.State != domain.RunStateCompleted {
		t.Fatalf("expected completed, got %s", run.State)
	}
	if run.ReplyStatus != domain.ReplyYes {
		t.Fatalf("reply status = %s, want the accepted yes", run.ReplyStatus)
	}
	if f.scheduler.calls != 1 {
		t.Fatalf("affirmative reply must schedule a meeting, calls = %d", f.scheduler.calls)
	}
	rec, err := f.opportunities.GetByRun(context.Background(), runID.String())
	if err != nil {
		t.Fatalf("get opportunity: %v", err)
	}
	if rec.ReplyStatus != domain.ReplyYes {
		t.Fatalf("record reply = %s, want yes", rec.ReplyStatus)
	}
}

func TestAdvanceEarlyWakeGoesBackToSleep(t *testing.T) {
	t.Parallel()

	f := newFixture()
	runID := f.startRun(t, domain.AutomationHybrid)
	run := f.advance(t, runID)
	deadline := *run.ReplyDeadline

	f.now = f.now.Add(time.Hour)
	run = f.advance(t, runID)

	if run.State != domain.RunStateAwaitingReply {
		t.Fatalf("expected still awaiting_reply, got %s", run.State)
	}
	if !run.WakeAt.Equal(deadline) {
		t.Fatalf("wake_at = %v, want deadline %v", run.WakeAt, deadline)
	}
}

func TestAdvanceMissingContractIsTerminalBusinessOutcome(t *testing.T) {
	t.Parallel()

	f := newFixture()
	delete(f.contracts.byAccount, "acct-1")
	runID := f.startRun(t, domain.AutomationHybrid)

	run := f.advance(t, runID)

	if run.State != domain.RunStateCompleted {
		t.Fatalf("expected completed, got %s", run.State)
	}
	if f.messenger.calls != 0 || f.teamNotifier.calls != 0 {
		t.Fatalf("no notifications expected without a contract")
	}
	rec, err := f.opportunities.GetByRun(context.Background(), runID.String())
	if err != nil {
		t.Fatalf("get opportunity: %v", err)
	}
	if rec.Status != domain.StatusNoContract {
		t.Fatalf("record status = %s, want no_contract", rec.Status)
	}
	if rec.EmailOutcome != domain.StepSkipped || rec.TeamOutcome != domain.StepSkipped {
		t.Fatalf("untouched steps must read skipped, got %s / %s", rec.EmailOutcome, rec.TeamOutcome)
	}
}

func TestAdvanceMissingUsageFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	f := newFixture()
	delete(f.usage.byAccount, "acct-1")
	runID := f.startRun(t, domain.AutomationFull)

	run := f.advance(t, runID)

	if run.State != domain.RunStateCompleted {
		t.Fatalf("expected completed, got %s", run.State)
	}
	if run.Usage == nil || run.Usage.CurrentUsage != 150 {
		t.Fatalf("expected default usage snapshot, got %+v", run.Usage)
	}
}

func TestAdvanceRecommenderFailureUsesRuleBasedPlan(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.recommender.err = errors.New("provider unavailable")
	runID := f.startRun(t, domain.AutomationFull)

	run := f.advance(t, runID)

	if run.Plan == nil {
		t.Fatalf("expected a plan on the run")
	}
	// Professional contract at 7500 usage resolves to the Enterprise rule.
	if run.Plan.RecommendedPlan != "Enterprise" || run.Plan.EstimatedValue != 15000 {
		t.Fatalf("fallback plan = %s value %v", run.Plan.RecommendedPlan, run.Plan.EstimatedValue)
	}
	if f.recommender.calls != 1 {
		t.Fatalf("recommender calls = %d, want 1", f.recommender.calls)
	}
}

func TestAdvanceDisabledFeaturesSkipEveryStep(t *testing.T) {
	t.Parallel()

	f := newFixture()
	ctx := context.Background()
	for name := range ports.KnownFeatures {
		if err := f.features.Set(ctx, name, false); err != nil {
			t.Fatalf("disable %s: %v", name, err)
		}
	}
	runID := f.startRun(t, domain.AutomationFull)

	run := f.advance(t, runID)

	if run.State != domain.RunStateCompleted {
		t.Fatalf("expected completed, got %s", run.State)
	}
	if f.recommender.calls != 0 || f.messenger.calls != 0 || f.teamNotifier.calls != 0 || f.scheduler.calls != 0 {
		t.Fatalf("collaborators invoked with features disabled")
	}
	rec, err := f.opportunities.GetByRun(ctx, runID.String())
	if err != nil {
		t.Fatalf("get opportunity: %v", err)
	}
	if rec.EmailOutcome != domain.StepSkipped || rec.TeamOutcome != domain.StepSkipped || rec.MeetingOutcome != domain.StepSkipped {
		t.Fatalf("record outcomes %s/%s/%s, want all skipped", rec.EmailOutcome, rec.TeamOutcome, rec.MeetingOutcome)
	}
	if rec.RecommendedPlan == "" {
		t.Fatalf("rule-based plan still expected with llm disabled")
	}
}

func TestAdvanceTransientSendRetriesThenDelivers(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.messenger.errs = []error{domain.Transient(errors.New("smtp timeout"))}
	runID := f.startRun(t, domain.AutomationFull)

	run := f.advance(t, runID)
	if run.State != domain.RunStateNotifyingCustomer {
		t.Fatalf("expected run parked in notifying_customer, got %s", run.State)
	}
	if run.StepAttempts != 1 {
		t.Fatalf("step attempts = %d, want 1", run.StepAttempts)
	}
	if !run.WakeAt.After(f.now) {
		t.Fatalf("retry must push wake_at past now")
	}

	run = f.advance(t, runID)
	if run.State != domain.RunStateCompleted {
		t.Fatalf("expected completed after retry, got %s", run.State)
	}
	if run.EmailOutcome != domain.StepDelivered {
		t.Fatalf("email outcome = %q, want delivered", run.EmailOutcome)
	}
	if f.messenger.calls != 2 {
		t.Fatalf("messenger calls = %d, want 2", f.messenger.calls)
	}
}

func TestAdvanceExhaustedRetriesSkipTheStep(t *testing.T) {
	t.Parallel()

	f := newFixture()
	cause := domain.Transient(errors.New("smtp down"))
	f.messenger.errs = []error{cause, cause, cause}
	runID := f.startRun(t, domain.AutomationFull)

	run := f.advance(t, runID)
	run = f.advance(t, run.RunID)
	run = f.advance(t, run.RunID)

	if run.State != domain.RunStateCompleted {
		t.Fatalf("expected completed, got %s", run.State)
	}
	if run.EmailOutcome != domain.StepSkipped {
		t.Fatalf("email outcome = %q, want skipped after exhausted retries", run.EmailOutcome)
	}
	if run.TeamOutcome != domain.StepPosted {
		t.Fatalf("later steps must still execute, team outcome = %q", run.TeamOutcome)
	}
}

func TestAdvanceCancelShortCircuitsBeforeNotifications(t *testing.T) {
	t.Parallel()

	f := newFixture()
	runID := f.startRun(t, domain.AutomationHybrid)
	if err := f.svc.CancelRun(context.Background(), runID); err != nil {
		t.Fatalf("cancel run: %v", err)
	}

	run := f.advance(t, runID)

	if run.State != domain.RunStateCompleted {
		t.Fatalf("expected completed, got %s", run.State)
	}
	if f.messenger.calls != 0 || f.teamNotifier.calls != 0 || f.scheduler.calls != 0 {
		t.Fatalf("cancelled run must not fire notifications")
	}
	rec, err := f.opportunities.GetByRun(context.Background(), runID.String())
	if err != nil {
		t.Fatalf("get opportunity: %v", err)
	}
	if rec.Status != domain.StatusCancelled {
		t.Fatalf("record status = %s, want cancelled", rec.Status)
	}
}

func TestAdvanceTerminalRunIsANoOp(t *testing.T) {
	t.Parallel()

	f := newFixture()
	runID := f.startRun(t, domain.AutomationFull)
	f.advance(t, runID)

	calls := f.scheduler.calls
	f.advance(t, runID)

	if f.opportunities.inserts != 1 {
		t.Fatalf("opportunity inserts = %d, want exactly 1", f.opportunities.inserts)
	}
	if f.scheduler.calls != calls {
		t.Fatalf("terminal re-advance invoked the scheduler")
	}
}

func TestSubmitReplyRejectedOutsideAwaitingState(t *testing.T) {
	t.Parallel()

	f := newFixture()
	runID := f.startRun(t, domain.AutomationHybrid)

	err := f.svc.SubmitReply(context.Background(), runID, "yes")
	if !errors.Is(err, domain.ErrReplyNotAccepted) {
		t.Fatalf("expected ErrReplyNotAccepted, got %v", err)
	}
}

func TestSubmitReplyValidatesTheVerb(t *testing.T) {
	t.Parallel()

	f := newFixture()
	runID := f.startRun(t, domain.AutomationHybrid)
	f.advance(t, runID)

	if err := f.svc.SubmitReply(context.Background(), runID, "timeout"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("engine-assigned verbs must be rejected, got %v", err)
	}
	if err := f.svc.SubmitReply(context.Background(), runID, "  Maybe "); err != nil {
		t.Fatalf("trimmed case-folded reply should be accepted: %v", err)
	}
}

func TestCancelRunRejectedOnTerminalRun(t *testing.T) {
	t.Parallel()

	f := newFixture()
	runID := f.startRun(t, domain.AutomationFull)
	f.advance(t, runID)

	if err := f.svc.CancelRun(context.Background(), runID); !errors.Is(err, domain.ErrRunTerminal) {
		t.Fatalf("expected ErrRunTerminal, got %v", err)
	}
}

func TestRunLifecycleEmitsOutboxEvents(t *testing.T) {
	t.Parallel()

	f := newFixture()
	runID := f.startRun(t, domain.AutomationFull)
	f.advance(t, runID)

	want := []string{EventRunStarted, EventOpportunityRecorded, EventRunCompleted}
	if len(f.outbox.events) != len(want) {
		t.Fatalf("outbox events = %v, want %v", f.outbox.events, want)
	}
	for i, ev := range want {
		if f.outbox.events[i] != ev {
			t.Fatalf("event[%d] = %s, want %s", i, f.outbox.events[i], ev)
		}
	}
}
