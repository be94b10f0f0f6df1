package alerting

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAlert(failed int) ReminderAlert {
	details := make([]ReminderFailure, 0, failed)
	for i := 0; i < failed; i++ {
		details = append(details, ReminderFailure{BillID: "b1", ServiceNumber: "00000001", Error: "bounced"})
	}
	return ReminderAlert{
		JobName:       "overdue_reminders",
		TotalCount:    3,
		SuccessCount:  3 - failed,
		FailedCount:   failed,
		Duration:      1500 * time.Millisecond,
		FailedDetails: details,
		Timestamp:     time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewAlertConfig_DetectsType(t *testing.T) {
	assert.Equal(t, "slack", NewAlertConfig("https://hooks.slack.com/x", "", 0, 0).WebhookType)
	assert.Equal(t, "discord", NewAlertConfig("https://discord.com/api/webhooks/x", "", 0, 0).WebhookType)
	cfg := NewAlertConfig("https://example.com/hook", "", 0, 0)
	assert.Equal(t, "generic", cfg.WebhookType)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 1, cfg.MinFailuresBeforeAlert)
	assert.False(t, NewAlertConfig("", "", 0, 0).Enabled)
}

func TestSendReminderAlert_Generic(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := NewAlerter(NewAlertConfig(srv.URL, "", 1, time.Second), nil)
	require.NoError(t, a.SendReminderAlert(context.Background(), sampleAlert(2)))

	assert.Equal(t, "reminder_failure", body["alert_type"])
	assert.EqualValues(t, 2, body["failed_count"])
	assert.EqualValues(t, 1500, body["duration_ms"])
}

func TestSendReminderAlert_SlackAndDiscordPayloads(t *testing.T) {
	for _, kind := range []string{"slack", "discord"} {
		t.Run(kind, func(t *testing.T) {
			var raw []byte
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				raw, _ = io.ReadAll(r.Body)
			}))
			defer srv.Close()

			a := NewAlerter(NewAlertConfig(srv.URL, kind, 1, time.Second), nil)
			require.NoError(t, a.SendReminderAlert(context.Background(), sampleAlert(1)))
			assert.Contains(t, string(raw), "00000001")
		})
	}
}

func TestSendReminderAlert_SkipsBelowThreshold(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	a := NewAlerter(NewAlertConfig(srv.URL, "", 3, time.Second), nil)
	require.NoError(t, a.SendReminderAlert(context.Background(), sampleAlert(2)))
	assert.False(t, called)

	disabled := NewAlerter(NewAlertConfig("", "", 1, time.Second), nil)
	assert.NoError(t, disabled.SendReminderAlert(context.Background(), sampleAlert(3)))
}

func TestSendReminderAlert_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewAlerter(NewAlertConfig(srv.URL, "", 1, time.Second), nil)
	assert.ErrorContains(t, a.SendReminderAlert(context.Background(), sampleAlert(1)), "502")
}

func TestUndelivered_CapsList(t *testing.T) {
	alert := sampleAlert(0)
	for i := 0; i < maxListed+2; i++ {
		alert.FailedDetails = append(alert.FailedDetails, ReminderFailure{BillID: "b", ServiceNumber: "00000009", Error: "bounced"})
	}
	list := undelivered(alert, "**")
	assert.Equal(t, maxListed+1, strings.Count(list, "\n"))
	assert.Contains(t, list, "and 2 more")
	assert.Contains(t, list, "**00000009**")
}
