package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AlertConfig says where reminder-failure alerts go. WebhookType picks the
// payload shape: "slack", "discord" or "generic".
type AlertConfig struct {
	WebhookURL             string
	WebhookType            string
	Enabled                bool
	MinFailuresBeforeAlert int
	Timeout                time.Duration
}

// NewAlertConfig fills in the webhook type from the URL when it is not set
// and enables alerting whenever a URL is present.
func NewAlertConfig(webhookURL, webhookType string, minFailures int, timeout time.Duration) AlertConfig {
	cfg := AlertConfig{
		WebhookURL:             webhookURL,
		WebhookType:            webhookType,
		MinFailuresBeforeAlert: minFailures,
		Timeout:                timeout,
	}
	cfg.Enabled = cfg.WebhookURL != ""

	if cfg.WebhookType == "" {
		switch {
		case strings.Contains(cfg.WebhookURL, "slack.com"):
			cfg.WebhookType = "slack"
		case strings.Contains(cfg.WebhookURL, "discord.com"):
			cfg.WebhookType = "discord"
		default:
			cfg.WebhookType = "generic"
		}
	}
	if cfg.MinFailuresBeforeAlert <= 0 {
		cfg.MinFailuresBeforeAlert = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg
}

// Alerter posts reminder-failure alerts to a webhook.
type Alerter struct {
	cfg    AlertConfig
	client *http.Client
	log    *zap.Logger
}

func NewAlerter(cfg AlertConfig, log *zap.Logger) *Alerter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Alerter{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, log: log}
}

// ReminderAlert summarizes a reminder run that could not reach every
// overdue household.
type ReminderAlert struct {
	JobName       string
	TotalCount    int
	SuccessCount  int
	FailedCount   int
	Duration      time.Duration
	FailedDetails []ReminderFailure
	Timestamp     time.Time
}

// ReminderFailure is one reminder that was not delivered.
type ReminderFailure struct {
	BillID        string `json:"bill_id"`
	ServiceNumber string `json:"service_number"`
	Error         string `json:"error"`
}

// SendReminderAlert posts the alert to the configured webhook when the
// failure count reaches the threshold.
func (a *Alerter) SendReminderAlert(ctx context.Context, alert ReminderAlert) error {
	if !a.cfg.Enabled {
		a.log.Debug("alerting: alerts disabled, skipping")
		return nil
	}

	if alert.FailedCount < a.cfg.MinFailuresBeforeAlert {
		a.log.Debug("alerting: failures below threshold, skipping",
			zap.Int("failed", alert.FailedCount),
			zap.Int("threshold", a.cfg.MinFailuresBeforeAlert),
		)
		return nil
	}

	build := a.buildGenericPayload
	switch a.cfg.WebhookType {
	case "slack":
		build = a.buildSlackPayload
	case "discord":
		build = a.buildDiscordPayload
	}
	payload, err := build(alert)
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	a.log.Info("alerting: sent reminder alert", zap.Int("failed", alert.FailedCount))
	return nil
}

// maxListed caps the undelivered list; Discord rejects field values over
// 1024 characters.
const maxListed = 10

// undelivered formats failures one per line, wrapping the service number in
// the chat flavour's bold marker.
func undelivered(alert ReminderAlert, bold string) string {
	var sb strings.Builder
	for i, f := range alert.FailedDetails {
		if i == maxListed {
			fmt.Fprintf(&sb, "and %d more\n", len(alert.FailedDetails)-maxListed)
			break
		}
		fmt.Fprintf(&sb, "• %s%s%s (bill %s): %s\n", bold, f.ServiceNumber, bold, f.BillID, f.Error)
	}
	return sb.String()
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

func (a *Alerter) buildSlackPayload(alert ReminderAlert) ([]byte, error) {
	emoji := ":warning:"
	if alert.FailedCount == alert.TotalCount {
		emoji = ":x:"
	}
	md := func(label, value string) slackText {
		return slackText{Type: "mrkdwn", Text: fmt.Sprintf("*%s:*\n%s", label, value)}
	}
	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("%s Overdue reminders: %s", emoji, alert.JobName)}},
		{Type: "section", Fields: []slackText{
			md("Failed", fmt.Sprintf("%d of %d", alert.FailedCount, alert.TotalCount)),
			md("Sent", fmt.Sprint(alert.SuccessCount)),
			md("Duration", alert.Duration.Round(time.Millisecond).String()),
			md("Run at", alert.Timestamp.Format(time.RFC3339)),
		}},
	}
	if list := undelivered(alert, "*"); list != "" {
		blocks = append(blocks, slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "*Undelivered:*\n" + list}})
	}
	return json.Marshal(struct {
		Blocks []slackBlock `json:"blocks"`
	}{blocks})
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Timestamp   string         `json:"timestamp"`
}

const (
	discordYellow = 0xFFFF00
	discordRed    = 0xFF0000
)

func (a *Alerter) buildDiscordPayload(alert ReminderAlert) ([]byte, error) {
	embed := discordEmbed{
		Title:       "Overdue reminders: " + alert.JobName,
		Description: fmt.Sprintf("%d of %d reminders failed", alert.FailedCount, alert.TotalCount),
		Color:       discordYellow,
		Fields: []discordField{
			{Name: "Sent", Value: fmt.Sprint(alert.SuccessCount), Inline: true},
			{Name: "Failed", Value: fmt.Sprint(alert.FailedCount), Inline: true},
			{Name: "Duration", Value: alert.Duration.Round(time.Millisecond).String(), Inline: true},
		},
		Timestamp: alert.Timestamp.Format(time.RFC3339),
	}
	if alert.FailedCount == alert.TotalCount {
		embed.Color = discordRed
	}
	if list := undelivered(alert, "**"); list != "" {
		embed.Fields = append(embed.Fields, discordField{Name: "Undelivered", Value: list})
	}
	return json.Marshal(struct {
		Embeds []discordEmbed `json:"embeds"`
	}{[]discordEmbed{embed}})
}

// genericAlert is the payload for custom webhooks.
type genericAlert struct {
	AlertType     string            `json:"alert_type"`
	JobName       string            `json:"job_name"`
	TotalCount    int               `json:"total_count"`
	SuccessCount  int               `json:"success_count"`
	FailedCount   int               `json:"failed_count"`
	DurationMs    int64             `json:"duration_ms"`
	Timestamp     string            `json:"timestamp"`
	FailedDetails []ReminderFailure `json:"failed_details"`
}

func (a *Alerter) buildGenericPayload(alert ReminderAlert) ([]byte, error) {
	return json.Marshal(genericAlert{
		AlertType:     "reminder_failure",
		JobName:       alert.JobName,
		TotalCount:    alert.TotalCount,
		SuccessCount:  alert.SuccessCount,
		FailedCount:   alert.FailedCount,
		DurationMs:    alert.Duration.Milliseconds(),
		Timestamp:     alert.Timestamp.Format(time.RFC3339),
		FailedDetails: alert.FailedDetails,
	})
}
