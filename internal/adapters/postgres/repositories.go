package postgres

import (
	"gorm.io/gorm"

	"github.com/easytrade/upsell-orchestrator/internal/ports"
)

type Repositories struct {
	Runs          ports.RunRepository
	Opportunities ports.OpportunityRepository
	Contracts     ports.ContractRepository
	Usage         ports.UsageRepository
	Outbox        ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Runs:          &runRepository{db: db},
		Opportunities: &opportunityRepository{db: db},
		Contracts:     &contractRepository{db: db},
		Usage:         &usageRepository{db: db},
		Outbox:        &outboxRepository{db: db},
	}
}
