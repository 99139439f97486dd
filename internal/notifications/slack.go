package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mozawave/market-watch/internal/models"
	"github.com/slack-go/slack"
)

var slackColors = map[models.Severity]string{
	models.SeverityInfo:     "#0078d4",
	models.SeverityWarning:  "warning",
	models.SeverityError:    "danger",
	models.SeverityCritical: "danger",
}

// SlackSink is the escalation channel, posting to an incoming webhook
type SlackSink struct {
	webhookURL string
}

var _ Sink = (*SlackSink)(nil)

func NewSlackSink(webhookURL string) *SlackSink {
	return &SlackSink{webhookURL: webhookURL}
}

func (s *SlackSink) Name() string {
	return "slack"
}

func (s *SlackSink) SendAlert(ctx context.Context, alert models.Alert) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack webhook not configured")
	}

	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf(":rotating_light: *%s* %s", strings.ToUpper(string(alert.Severity)), alert.Title),
		Attachments: []slack.Attachment{{
			Color: slackColors[alert.Severity],
			Title: alert.Title,
			Text:  alert.Message,
			Fields: []slack.AttachmentField{
				{Title: "Entity", Value: alert.EntityID, Short: true},
				{Title: "Escalation", Value: strconv.Itoa(alert.EscalationLevel), Short: true},
			},
			Footer: "MozaWave Market Watch",
			Ts:     json.Number(strconv.FormatInt(alert.CreatedAt.Unix(), 10)),
		}},
	}

	if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("failed to post Slack webhook: %w", err)
	}
	return nil
}
