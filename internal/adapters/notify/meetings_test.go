package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

func TestScheduleMeetingSimulatedWithoutCalendar(t *testing.T) {
	t.Parallel()

	c := NewMeetingClient("", testLogger())
	ref, outcome, err := c.ScheduleMeeting(context.Background(), domain.Contact{Email: "dana@example.com"}, "acct-1", "Enterprise")
	if err != nil {
		t.Fatalf("simulated booking must not error: %v", err)
	}
	if outcome != domain.StepScheduled {
		t.Fatalf("outcome = %q, want scheduled", outcome)
	}
	if !strings.HasPrefix(ref, "meeting_") {
		t.Fatalf("ref = %q, want meeting_ prefix", ref)
	}
}

func TestScheduleMeetingCallsCalendarService(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/meetings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req scheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.AccountID != "acct-1" || req.ContactEmail != "dana@example.com" {
			t.Errorf("request = %+v", req)
		}
		if req.DurationMins != 30 {
			t.Errorf("duration = %d, want 30", req.DurationMins)
		}
		_ = json.NewEncoder(w).Encode(scheduleResponse{MeetingID: "meeting-42"})
	}))
	defer srv.Close()

	c := NewMeetingClient(srv.URL, testLogger())
	ref, outcome, err := c.ScheduleMeeting(context.Background(), domain.Contact{Name: "Dana", Email: "dana@example.com"}, "acct-1", "Enterprise")
	if err != nil {
		t.Fatalf("schedule meeting: %v", err)
	}
	if outcome != domain.StepScheduled || ref != "meeting-42" {
		t.Fatalf("outcome %q ref %q", outcome, ref)
	}
}

func TestScheduleMeetingServerErrorsAreRetryable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewMeetingClient(srv.URL, testLogger())
	_, outcome, err := c.ScheduleMeeting(context.Background(), domain.Contact{Email: "dana@example.com"}, "acct-1", "Enterprise")
	if outcome != domain.StepPending {
		t.Fatalf("outcome = %q, want pending", outcome)
	}
	if !domain.IsTransient(err) {
		t.Fatalf("5xx must be retryable, got %v", err)
	}
}

func TestScheduleMeetingClientErrorsArePermanent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewMeetingClient(srv.URL, testLogger())
	_, outcome, err := c.ScheduleMeeting(context.Background(), domain.Contact{Email: "dana@example.com"}, "acct-1", "Enterprise")
	if outcome != domain.StepPending {
		t.Fatalf("outcome = %q, want pending", outcome)
	}
	if err == nil || domain.IsTransient(err) {
		t.Fatalf("4xx must be a permanent failure, got %v", err)
	}
}
