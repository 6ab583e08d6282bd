package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts the internal opportunity summary to the sales channel.
type DiscordNotifier struct {
	session   messageSender
	channelID string
	logger    *slog.Logger
}

func NewDiscordNotifier(botToken, channelID string, logger *slog.Logger) (*DiscordNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	n := &DiscordNotifier{
		channelID: channelID,
		logger:    logger.With("module", "notify", "layer", "adapter"),
	}
	if strings.TrimSpace(botToken) == "" {
		return n, nil
	}
	session, err := discordgo.New(normalizeBotToken(botToken))
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	n.session = session
	return n, nil
}

func (n *DiscordNotifier) PostTeamSummary(ctx context.Context, runID string, plan domain.UpsellPlan, usage domain.UsageSnapshot, contract domain.ContractSnapshot, emailOutcome domain.StepOutcome) (domain.StepOutcome, error) {
	content := BuildTeamSummary(runID, plan, usage, contract, emailOutcome)
	if n.session == nil || n.channelID == "" {
		n.logger.InfoContext(ctx, "discord not configured, summary logged only",
			"operation", "post_team_summary", "outcome", "skipped",
			"run_id", runID)
		return domain.StepSkipped, nil
	}

	if _, err := n.session.ChannelMessageSend(n.channelID, content); err != nil {
		return domain.StepPending, domain.Transient(fmt.Errorf("discord post: %w", err))
	}
	n.logger.InfoContext(ctx, "team summary posted",
		"operation", "post_team_summary", "outcome", "success",
		"run_id", runID, "channel_id", n.channelID)
	return domain.StepPosted, nil
}

// BuildTeamSummary renders the sales channel message for one opportunity.
func BuildTeamSummary(runID string, plan domain.UpsellPlan, usage domain.UsageSnapshot, contract domain.ContractSnapshot, emailOutcome domain.StepOutcome) string {
	var sb strings.Builder
	sb.WriteString("**Upsell opportunity**\n")
	fmt.Fprintf(&sb, "Account: %s (current plan %s, spend %.2f/mo)\n", contract.AccountID, contract.CurrentPlan, contract.CurrentSpend)
	fmt.Fprintf(&sb, "Usage: %s at %.0f, trend %s\n", usage.MetricType, usage.CurrentUsage, usage.Trend)
	fmt.Fprintf(&sb, "Recommendation: %s (est. value %.0f)\n", plan.RecommendedPlan, plan.EstimatedValue)
	fmt.Fprintf(&sb, "Why: %s\n", plan.Justification)
	status := "not sent"
	if emailOutcome == domain.StepDelivered {
		status = "sent"
	}
	fmt.Fprintf(&sb, "Customer email: %s\n", status)
	fmt.Fprintf(&sb, "Run: %s\n", runID)
	return sb.String()
}

func normalizeBotToken(token string) string {
	trimmed := strings.TrimSpace(token)
	if strings.HasPrefix(trimmed, "Bot ") {
		return trimmed
	}
	return "Bot " + trimmed
}
