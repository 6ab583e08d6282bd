package application

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
	"github.com/easytrade/upsell-orchestrator/internal/ports"
)

type memRunRepo struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*domain.Run
}

func newMemRunRepo() *memRunRepo {
	return &memRunRepo{runs: map[uuid.UUID]*domain.Run{}}
}

func cloneRun(run *domain.Run) *domain.Run {
	c := *run
	return &c
}

func (r *memRunRepo) Create(_ context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.RunID]; ok {
		return domain.ErrConflict
	}
	r.runs[run.RunID] = cloneRun(run)
	return nil
}

func (r *memRunRepo) Get(_ context.Context, runID uuid.UUID) (*domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneRun(run), nil
}

func (r *memRunRepo) Update(_ context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.runs[run.RunID]
	if !ok {
		return domain.ErrNotFound
	}
	cancel := stored.CancelRequested
	r.runs[run.RunID] = cloneRun(run)
	r.runs[run.RunID].CancelRequested = cancel
	return nil
}

func (r *memRunRepo) ClaimDue(_ context.Context, limit int, _ string, _ time.Time) ([]*domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	out := make([]*domain.Run, 0)
	for _, run := range r.runs {
		if run.Terminal() || run.WakeAt.After(now) {
			continue
		}
		out = append(out, cloneRun(run))
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memRunRepo) Release(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func (r *memRunRepo) AcceptReply(_ context.Context, runID uuid.UUID, reply domain.ReplyStatus, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return domain.ErrNotFound
	}
	if !run.AcceptsReply() {
		return domain.ErrReplyNotAccepted
	}
	run.ReplyStatus = reply
	run.WakeAt = now
	run.UpdatedAt = now
	return nil
}

func (r *memRunRepo) RequestCancel(_ context.Context, runID uuid.UUID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return domain.ErrNotFound
	}
	if run.Terminal() {
		return domain.ErrRunTerminal
	}
	run.CancelRequested = true
	run.WakeAt = now
	return nil
}

type memOpportunityRepo struct {
	mu      sync.Mutex
	byRun   map[string]domain.OpportunityRecord
	inserts int
}

func newMemOpportunityRepo() *memOpportunityRepo {
	return &memOpportunityRepo{byRun: map[string]domain.OpportunityRecord{}}
}

func (r *memOpportunityRepo) Record(_ context.Context, rec domain.OpportunityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byRun[rec.RunID]; ok {
		return nil
	}
	r.inserts++
	r.byRun[rec.RunID] = rec
	return nil
}

func (r *memOpportunityRepo) GetByRun(_ context.Context, runID string) (domain.OpportunityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byRun[runID]
	if !ok {
		return domain.OpportunityRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (r *memOpportunityRepo) ListByAccount(_ context.Context, accountID string, limit int) ([]domain.OpportunityRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.OpportunityRecord, 0)
	for _, rec := range r.byRun {
		if rec.AccountID == accountID {
			out = append(out, rec)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type memContractRepo struct {
	mu        sync.Mutex
	byAccount map[string]*domain.Contract
	failWith  error
}

func newMemContractRepo() *memContractRepo {
	return &memContractRepo{byAccount: map[string]*domain.Contract{}}
}

func (r *memContractRepo) Create(_ context.Context, contract *domain.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAccount[contract.AccountID] = contract
	return nil
}

func (r *memContractRepo) GetByAccount(_ context.Context, accountID string) (*domain.Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	contract, ok := r.byAccount[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return contract, nil
}

func (r *memContractRepo) Update(_ context.Context, contract *domain.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAccount[contract.AccountID] = contract
	return nil
}

type memUsageRepo struct {
	mu        sync.Mutex
	byAccount map[string]domain.UsageSnapshot
	failWith  error
}

func newMemUsageRepo() *memUsageRepo {
	return &memUsageRepo{byAccount: map[string]domain.UsageSnapshot{}}
}

func (r *memUsageRepo) Put(_ context.Context, snap domain.UsageSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAccount[snap.AccountID] = snap
	return nil
}

func (r *memUsageRepo) Latest(_ context.Context, accountID string) (*domain.UsageSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	snap, ok := r.byAccount[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &snap, nil
}

type memOutbox struct {
	mu     sync.Mutex
	events []string
}

func (o *memOutbox) Enqueue(_ context.Context, eventType, _ string, _ []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, eventType)
	return nil
}

func (o *memOutbox) ClaimUnpublished(context.Context, int, string, time.Time) ([]ports.OutboxRecord, error) {
	return nil, nil
}
func (o *memOutbox) MarkPublished(context.Context, uuid.UUID, string, time.Time) error { return nil }
func (o *memOutbox) MarkFailed(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}
func (o *memOutbox) MarkDeadLettered(context.Context, uuid.UUID, string, string, time.Time) error {
	return nil
}

type memFeatures struct {
	mu       sync.Mutex
	disabled map[string]bool
}

func (f *memFeatures) Enabled(_ context.Context, name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.disabled[name]
}

func (f *memFeatures) Snapshot(context.Context) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool, len(ports.KnownFeatures))
	for name := range ports.KnownFeatures {
		out[name] = !f.disabled[name]
	}
	return out, nil
}

func (f *memFeatures) Set(_ context.Context, name string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disabled == nil {
		f.disabled = map[string]bool{}
	}
	f.disabled[name] = !enabled
	return nil
}

type fakeRecommender struct {
	plan  domain.UpsellPlan
	err   error
	calls int
}

func (r *fakeRecommender) RecommendPlan(context.Context, domain.UsageSnapshot, domain.ContractSnapshot) (domain.UpsellPlan, error) {
	r.calls++
	if r.err != nil {
		return domain.UpsellPlan{}, r.err
	}
	return r.plan, nil
}

type fakeMessenger struct {
	errs  []error
	calls int
}

func (m *fakeMessenger) SendCustomerMessage(context.Context, domain.Contact, domain.UpsellPlan, domain.UsageSnapshot, domain.ContractSnapshot) (domain.StepOutcome, error) {
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return domain.StepPending, err
		}
	}
	return domain.StepDelivered, nil
}

type fakeTeamNotifier struct {
	calls int
	err   error
}

func (n *fakeTeamNotifier) PostTeamSummary(context.Context, string, domain.UpsellPlan, domain.UsageSnapshot, domain.ContractSnapshot, domain.StepOutcome) (domain.StepOutcome, error) {
	n.calls++
	if n.err != nil {
		return domain.StepPending, n.err
	}
	return domain.StepPosted, nil
}

type fakeScheduler struct {
	calls int
	err   error
}

func (s *fakeScheduler) ScheduleMeeting(context.Context, domain.Contact, string, string) (string, domain.StepOutcome, error) {
	s.calls++
	if s.err != nil {
		return "", domain.StepPending, s.err
	}
	return "meeting_fixture", domain.StepScheduled, nil
}

type fixture struct {
	svc           *Service
	runs          *memRunRepo
	opportunities *memOpportunityRepo
	contracts     *memContractRepo
	usage         *memUsageRepo
	outbox        *memOutbox
	features      *memFeatures
	recommender   *fakeRecommender
	messenger     *fakeMessenger
	teamNotifier  *fakeTeamNotifier
	scheduler     *fakeScheduler
	now           time.Time
}

func newFixture() *fixture {
	f := &fixture{
		runs:          newMemRunRepo(),
		opportunities: newMemOpportunityRepo(),
		contracts:     newMemContractRepo(),
		usage:         newMemUsageRepo(),
		outbox:        &memOutbox{},
		features:      &memFeatures{},
		recommender: &fakeRecommender{plan: domain.UpsellPlan{
			RecommendedPlan: "Enterprise",
			EstimatedValue:  15000,
			Justification:   "Enterprise-level usage detected",
			Features:        domain.PlanFeatures("Enterprise"),
		}},
		messenger:    &fakeMessenger{},
		teamNotifier: &fakeTeamNotifier{},
		scheduler:    &fakeScheduler{},
		now:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(Dependencies{
		Config:        Config{ServiceName: "upsell-orchestrator-test"},
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Runs:          f.runs,
		Opportunities: f.opportunities,
		Contracts:     f.contracts,
		Usage:         f.usage,
		Outbox:        f.outbox,
		Features:      f.features,
		Recommender:   f.recommender,
		Messenger:     f.messenger,
		TeamNotifier:  f.teamNotifier,
		Scheduler:     f.scheduler,
	})
	f.svc.nowFn = func() time.Time { return f.now }
	f.seedAccount("acct-1")
	return f
}

func (f *fixture) seedAccount(accountID string) {
	f.contracts.byAccount[accountID] = &domain.Contract{
		ContractID:     "contract-" + accountID,
		AccountID:      accountID,
		ContractType:   domain.ContractProfessional,
		Status:         domain.ContractActive,
		EndDate:        f.now.AddDate(1, 0, 0),
		RenewalDate:    f.now.AddDate(0, 11, 0),
		BaseMonthlyFee: 2500,
		PrimaryContact: domain.Contact{Name: "Dana", Email: "dana@example.com"},
	}
	f.usage.byAccount[accountID] = domain.UsageSnapshot{
		AccountID:         accountID,
		CurrentUsage:      7500,
		Trend:             domain.TrendIncreasing,
		Period:            domain.PeriodMonthly,
		ThresholdExceeded: 5000,
		MetricType:        string(domain.MetricTradeVolume),
	}
}

func (f *fixture) startRun(t *testing.T, level domain.AutomationLevel) uuid.UUID {
	t.Helper()
	res, err := f.svc.StartRun(context.Background(), StartRunInput{
		AccountID:       "acct-1",
		EventID:         "alert-1",
		AutomationLevel: level,
		MetricType:      string(domain.MetricTradeVolume),
	})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	return res.RunID
}

func (f *fixture) advance(t *testing.T, runID uuid.UUID) *domain.Run {
	t.Helper()
	run, err := f.runs.Get(context.Background(), runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if err := f.svc.Advance(context.Background(), run); err != nil {
		t.Fatalf("advance run: %v", err)
	}
	stored, err := f.runs.Get(context.Background(), runID)
	if err != nil {
		t.Fatalf("get run after advance: %v", err)
	}
	return stored
}
