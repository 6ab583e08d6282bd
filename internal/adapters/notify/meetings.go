package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

// MeetingClient books follow-up meetings against the calendar service. With no
// base URL configured it simulates the booking and returns a locally generated
// reference, which keeps the demo environment self-contained.
type MeetingClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewMeetingClient(baseURL string, logger *slog.Logger) *MeetingClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &MeetingClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger.With("module", "notify", "layer", "adapter"),
	}
}

type scheduleRequest struct {
	AccountID     string `json:"account_id"`
	ContactName   string `json:"contact_name,omitempty"`
	ContactEmail  string `json:"contact_email"`
	Subject       string `json:"subject"`
	DurationMins  int    `json:"duration_mins"`
	EarliestStart string `json:"earliest_start"`
}

type scheduleResponse struct {
	MeetingID string `json:"meeting_id"`
}

func (c *MeetingClient) ScheduleMeeting(ctx context.Context, contact domain.Contact, accountID, recommendedPlan string) (string, domain.StepOutcome, error) {
	if c.baseURL == "" {
		ref := "meeting_" + uuid.NewString()
		c.logger.InfoContext(ctx, "calendar not configured, meeting simulated",
			"operation", "schedule_meeting", "outcome", "success",
			"account_id", accountID, "meeting_ref", ref)
		return ref, domain.StepScheduled, nil
	}

	payload, err := json.Marshal(scheduleRequest{
		AccountID:     accountID,
		ContactName:   contact.Name,
		ContactEmail:  contact.Email,
		Subject:       fmt.Sprintf("Upgrade discussion: %s plan", recommendedPlan),
		DurationMins:  30,
		EarliestStart: time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
	})
	if err != nil {
		return "", domain.StepPending, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/meetings", bytes.NewReader(payload))
	if err != nil {
		return "", domain.StepPending, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", domain.StepPending, domain.Transient(fmt.Errorf("calendar request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", domain.StepPending, domain.Transient(fmt.Errorf("calendar service %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.StepPending, fmt.Errorf("calendar service %d", resp.StatusCode)
	}

	var out scheduleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domain.StepPending, fmt.Errorf("decode calendar response: %w", err)
	}
	if out.MeetingID == "" {
		return "", domain.StepPending, fmt.Errorf("calendar response missing meeting_id")
	}
	c.logger.InfoContext(ctx, "meeting scheduled",
		"operation", "schedule_meeting", "outcome", "success",
		"account_id", accountID, "meeting_ref", out.MeetingID)
	return out.MeetingID, domain.StepScheduled, nil
}
