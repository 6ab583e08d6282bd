package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

// RunRepository persists the durable run rows the state machine executes on.
// Claiming hands a batch of due runs to exactly one worker at a time.
type RunRepository interface {
	Create(ctx context.Context, run *domain.Run) error
	Get(ctx context.Context, runID uuid.UUID) (*domain.Run, error)
	Update(ctx context.Context, run *domain.Run) error
	// ClaimDue returns runs whose wake deadline has passed and marks them claimed
	// until claimUntil so no other worker picks them up concurrently.
	ClaimDue(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]*domain.Run, error)
	Release(ctx context.Context, runID uuid.UUID, claimToken string) error
	// AcceptReply records the customer reply and wakes the run, but only while the
	// run is awaiting one; any other state leaves the row untouched and returns
	// domain.ErrReplyNotAccepted.
	AcceptReply(ctx context.Context, runID uuid.UUID, reply domain.ReplyStatus, now time.Time) error
	// RequestCancel flags a non-terminal run for cancellation and wakes it.
	RequestCancel(ctx context.Context, runID uuid.UUID, now time.Time) error
}

// OpportunityRepository is the write-once audit log of terminal outcomes.
type OpportunityRepository interface {
	// Record inserts the record keyed by run id. A second insert for the same run
	// is a no-op so engine retries can never produce duplicates.
	Record(ctx context.Context, rec domain.OpportunityRecord) error
	GetByRun(ctx context.Context, runID string) (domain.OpportunityRecord, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]domain.OpportunityRecord, error)
}

// ContractRepository fronts the contract-data store, one document per account.
type ContractRepository interface {
	Create(ctx context.Context, contract *domain.Contract) error
	GetByAccount(ctx context.Context, accountID string) (*domain.Contract, error)
	Update(ctx context.Context, contract *domain.Contract) error
}

// UsageRepository stores the usage metrics pushed by the ingestion endpoint
// and serves the latest snapshot per account to the fetch-usage activity.
type UsageRepository interface {
	Put(ctx context.Context, snap domain.UsageSnapshot) error
	Latest(ctx context.Context, accountID string) (*domain.UsageSnapshot, error)
}

// OutboxRecord is one pending event row awaiting broker delivery.
type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
}

// OutboxRepository implements the transactional outbox: events are enqueued in
// the same store as the state change that caused them and drained separately.
type OutboxRepository interface {
	Enqueue(ctx context.Context, eventType, partitionKey string, payload []byte) error
	ClaimUnpublished(ctx context.Context, limit int, claimToken string, claimUntil time.Time) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, claimToken string, reason string, at time.Time) error
	MarkDeadLettered(ctx context.Context, outboxID uuid.UUID, claimToken string, reason string, at time.Time) error
}
