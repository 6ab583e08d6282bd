package application

import (
	"context"
	"fmt"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

// IngestAlerts processes a webhook batch: validates each alert, starts a run
// for every alert that qualifies, and always answers synchronously. A failing
// alert never blocks the rest of the batch.
func (s *Service) IngestAlerts(ctx context.Context, in IngestAlertsInput) (IngestAlertsResult, error) {
	if len(in.Alerts) == 0 {
		return IngestAlertsResult{}, domain.ErrInvalidInput
	}

	runIDs := make([]string, 0, len(in.Alerts))
	errs := make([]string, 0)
	triggered := 0
	for i := range in.Alerts {
		alert := &in.Alerts[i]
		if err := alert.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("alert %s: %v", alert.AlertID, err))
			continue
		}
		if !alert.TriggersUpsell() {
			s.logger.InfoContext(ctx, "alert below upsell criteria",
				"operation", "ingest_alerts",
				"outcome", "skipped",
				"alert_id", alert.AlertID,
				"metric_type", string(alert.MetricType),
				"severity", string(alert.Severity),
			)
			continue
		}

		accountID := alert.MetricData.AccountID
		if accountID == "" {
			accountID = "unknown"
		}
		res, err := s.StartRun(ctx, StartRunInput{
			AccountID:       accountID,
			EventID:         alert.AlertID,
			AutomationLevel: domain.AutomationFromSeverity(alert.Severity),
			MetricType:      string(alert.MetricType),
		})
		if err != nil {
			errs = append(errs, fmt.Sprintf("alert %s: %v", alert.AlertID, err))
			continue
		}
		triggered++
		runIDs = append(runIDs, res.RunID.String())
	}

	success := len(errs) == 0
	message := fmt.Sprintf("processed %d alerts, triggered %d runs", len(in.Alerts), triggered)
	if !success {
		message = fmt.Sprintf("processed %d alerts with %d errors", len(in.Alerts), len(errs))
	}
	return IngestAlertsResult{
		Success:        success,
		Message:        message,
		ProcessedCount: len(in.Alerts) - len(errs),
		RunIDs:         runIDs,
		Errors:         errs,
		Timestamp:      s.nowFn(),
	}, nil
}
