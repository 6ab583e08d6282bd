package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

// SMTPMessenger delivers the customer upsell email over plain SMTP.
// With no host configured it runs in mock mode: the draft is logged and the
// step reports skipped without transmitting.
type SMTPMessenger struct {
	addr   string
	from   string
	auth   smtp.Auth
	logger *slog.Logger
	sendFn func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMessenger(host string, port int, from, username, password string, logger *slog.Logger) *SMTPMessenger {
	if logger == nil {
		logger = slog.Default()
	}
	m := &SMTPMessenger{
		from:   from,
		logger: logger.With("module", "notify", "layer", "adapter"),
		sendFn: smtp.SendMail,
	}
	if strings.TrimSpace(host) != "" {
		m.addr = fmt.Sprintf("%s:%d", host, port)
		if username != "" {
			m.auth = smtp.PlainAuth("", username, password, host)
		}
	}
	return m
}

func (m *SMTPMessenger) SendCustomerMessage(ctx context.Context, contact domain.Contact, plan domain.UpsellPlan, usage domain.UsageSnapshot, contract domain.ContractSnapshot) (domain.StepOutcome, error) {
	if strings.TrimSpace(contact.Email) == "" {
		m.logger.WarnContext(ctx, "no contact email on contract, skipping delivery",
			"operation", "send_customer_message", "outcome", "skipped",
			"account_id", contract.AccountID)
		return domain.StepSkipped, nil
	}

	subject, body := BuildUpsellDraft(contact, plan, usage, contract)
	if m.addr == "" {
		m.logger.InfoContext(ctx, "smtp not configured, draft logged only",
			"operation", "send_customer_message", "outcome", "skipped",
			"to", contact.Email, "subject", subject)
		return domain.StepSkipped, nil
	}

	msg := buildMIME(m.from, contact.Email, subject, body)
	if err := m.sendFn(m.addr, m.auth, m.from, []string{contact.Email}, msg); err != nil {
		return domain.StepPending, domain.Transient(fmt.Errorf("smtp send: %w", err))
	}
	m.logger.InfoContext(ctx, "customer message delivered",
		"operation", "send_customer_message", "outcome", "success",
		"to", contact.Email, "subject", subject)
	return domain.StepDelivered, nil
}

// BuildUpsellDraft composes the customer-facing subject and body. The plan's
// own email copy wins when the recommendation provided one.
func BuildUpsellDraft(contact domain.Contact, plan domain.UpsellPlan, usage domain.UsageSnapshot, contract domain.ContractSnapshot) (subject, body string) {
	subject = plan.EmailSubject
	if subject == "" {
		subject = fmt.Sprintf("Unlock more with the %s plan", plan.RecommendedPlan)
	}
	if plan.EmailBody != "" {
		return subject, plan.EmailBody
	}

	name := contact.Name
	if name == "" {
		name = "there"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi %s,\n\n", name)
	fmt.Fprintf(&sb, "Your %s usage reached %.0f this %s, well past your current %s plan.\n\n",
		usage.MetricType, usage.CurrentUsage, usage.Period, contract.CurrentPlan)
	fmt.Fprintf(&sb, "We recommend the %s plan. %s\n\n", plan.RecommendedPlan, plan.Justification)
	if len(plan.Features) > 0 {
		sb.WriteString("What you get:\n")
		for _, f := range plan.Features {
			fmt.Fprintf(&sb, "  - %s\n", f)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Reply yes to this message and we will set up a call to walk you through it.\n\nThe EasyTrade Team\n")
	return subject, sb.String()
}

func buildMIME(from, to, subject, body string) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return []byte(sb.String())
}
