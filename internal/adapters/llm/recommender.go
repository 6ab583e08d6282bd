package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

const systemPrompt = "You are a SaaS sales analyst. Answer with a single JSON object and nothing else."

// Recommender produces upsell plans with the model provider and falls back to
// rule-based planning on any provider or parse failure, so it never returns an
// error the run would have to absorb.
type Recommender struct {
	client *AnthropicClient
	model  string
	logger *slog.Logger
}

func NewRecommender(client *AnthropicClient, model string, logger *slog.Logger) *Recommender {
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{
		client: client,
		model:  model,
		logger: logger.With("module", "llm", "layer", "adapter"),
	}
}

func (r *Recommender) RecommendPlan(ctx context.Context, usage domain.UsageSnapshot, contract domain.ContractSnapshot) (domain.UpsellPlan, error) {
	text, err := r.client.Complete(ctx, r.model, systemPrompt, buildPrompt(usage, contract), 1024)
	if err != nil {
		r.logger.WarnContext(ctx, "model call failed, using rule-based plan",
			"operation", "recommend_plan", "outcome", "fallback", "error", err)
		return domain.FallbackPlan(usage, contract), nil
	}

	plan, err := parsePlan(text)
	if err != nil {
		r.logger.WarnContext(ctx, "model reply unparseable, using rule-based plan",
			"operation", "recommend_plan", "outcome", "fallback", "error", err)
		return domain.FallbackPlan(usage, contract), nil
	}
	return plan, nil
}

func buildPrompt(usage domain.UsageSnapshot, contract domain.ContractSnapshot) string {
	var sb strings.Builder
	sb.WriteString("Recommend an upsell for this account.\n\n")
	fmt.Fprintf(&sb, "Current plan: %s\n", contract.CurrentPlan)
	fmt.Fprintf(&sb, "Monthly spend: %.2f\n", contract.CurrentSpend)
	fmt.Fprintf(&sb, "Renewal date: %s\n", contract.RenewalDate.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Metric: %s\n", usage.MetricType)
	fmt.Fprintf(&sb, "Current usage: %.2f (%s, %s)\n", usage.CurrentUsage, usage.Trend, usage.Period)
	fmt.Fprintf(&sb, "Threshold exceeded: %.2f\n\n", usage.ThresholdExceeded)
	sb.WriteString(`Reply with JSON using exactly these keys:
{
  "recommended_plan": string,
  "estimated_value": number,
  "justification": string,
  "features": [string],
  "roi_analysis": string,
  "risk_assessment": string,
  "email_subject": string,
  "email_body": string
}`)
	return sb.String()
}

// parsePlan extracts the plan JSON from the model reply, tolerating markdown
// code fences around the object.
func parsePlan(text string) (domain.UpsellPlan, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	if start := strings.Index(cleaned, "{"); start > 0 {
		cleaned = cleaned[start:]
	}

	var plan domain.UpsellPlan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return domain.UpsellPlan{}, fmt.Errorf("parse plan json: %w", err)
	}
	if strings.TrimSpace(plan.RecommendedPlan) == "" {
		return domain.UpsellPlan{}, fmt.Errorf("plan json missing recommended_plan")
	}
	if plan.EstimatedValue <= 0 {
		return domain.UpsellPlan{}, fmt.Errorf("plan json missing estimated_value")
	}
	if len(plan.Features) == 0 {
		plan.Features = domain.PlanFeatures(plan.RecommendedPlan)
	}
	return plan, nil
}
