package application

import (
	"log/slog"
	"time"

	"github.com/easytrade/upsell-orchestrator/internal/ports"
)

// Service carries every use-case of the orchestrator: webhook ingestion,
// run lifecycle, the state-machine engine, and the narrow store surfaces.
type Service struct {
	cfg           Config
	logger        *slog.Logger
	runs          ports.RunRepository
	opportunities ports.OpportunityRepository
	contracts     ports.ContractRepository
	usage         ports.UsageRepository
	outbox        ports.OutboxRepository
	features      ports.FeatureStore
	recommender   ports.PlanRecommender
	messenger     ports.CustomerMessenger
	teamNotifier  ports.TeamNotifier
	scheduler     ports.MeetingScheduler
	nowFn         func() time.Time
}

type Dependencies struct {
	Config        Config
	Logger        *slog.Logger
	Runs          ports.RunRepository
	Opportunities ports.OpportunityRepository
	Contracts     ports.ContractRepository
	Usage         ports.UsageRepository
	Outbox        ports.OutboxRepository
	Features      ports.FeatureStore
	Recommender   ports.PlanRecommender
	Messenger     ports.CustomerMessenger
	TeamNotifier  ports.TeamNotifier
	Scheduler     ports.MeetingScheduler
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	cfg.applyDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:           cfg,
		logger:        logger.With("module", "application", "layer", "application"),
		runs:          deps.Runs,
		opportunities: deps.Opportunities,
		contracts:     deps.Contracts,
		usage:         deps.Usage,
		outbox:        deps.Outbox,
		features:      deps.Features,
		recommender:   deps.Recommender,
		messenger:     deps.Messenger,
		teamNotifier:  deps.TeamNotifier,
		scheduler:     deps.Scheduler,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}
