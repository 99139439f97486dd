package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mozawave/market-watch/internal/config"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// mailer is satisfied by *gomail.Dialer
type mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Service is the standard channel: a Teams webhook and email, both optional
type Service struct {
	config *config.Config
	client *resty.Client
	mailer mailer
}

var (
	_ Sink         = (*Service)(nil)
	_ DigestSender = (*Service)(nil)
)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
		mailer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

func (s *Service) Name() string {
	return "standard"
}

// SendAlert posts the alert to every configured channel
func (s *Service) SendAlert(ctx context.Context, alert models.Alert) error {
	return s.deliver(ctx,
		func(ctx context.Context) error { return s.postTeams(ctx, s.buildAlertCard(alert)) },
		func() error { return s.sendAlertEmail(alert) },
	)
}

// SendDigest sends the periodic digest via configured channels
func (s *Service) SendDigest(ctx context.Context, digest *models.Digest) error {
	return s.deliver(ctx,
		func(ctx context.Context) error { return s.postTeams(ctx, s.buildDigestCard(digest)) },
		func() error { return s.sendDigestEmail(digest) },
	)
}

func (s *Service) deliver(ctx context.Context, teams func(context.Context) error, email func() error) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := teams(ctx); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Debug("Sent Teams notification")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := email(); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Debug("Sent email notification")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) postTeams(ctx context.Context, message *TeamsMessage) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

var severityColors = map[models.Severity]string{
	models.SeverityInfo:     "0078D4",
	models.SeverityWarning:  "FFB900",
	models.SeverityError:    "D13438",
	models.SeverityCritical: "A80000",
}

func (s *Service) buildAlertCard(alert models.Alert) *TeamsMessage {
	return &TeamsMessage{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: severityColors[alert.Severity],
		Title:      fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title),
		Text:       alert.Message,
		Sections: []TeamsSection{{
			Facts: []TeamsFact{
				{Name: "Entity", Value: alert.EntityID},
				{Name: "Severity", Value: string(alert.Severity)},
				{Name: "Detected", Value: alert.CreatedAt.Format("2006-01-02 15:04:05 UTC")},
			},
			Markdown: true,
		}},
	}
}

func (s *Service) buildDigestCard(digest *models.Digest) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("%s Market Watch - %s digest", s.config.OrgName, titleCase(digest.Period)),
		Text:    fmt.Sprintf("Detected %d competitor changes in the last %s", digest.TotalChanges, periodWindow(digest.Period)),
	}

	facts := []TeamsFact{
		{Name: "Total Changes", Value: fmt.Sprintf("%d", digest.TotalChanges)},
		{Name: "Active Alerts", Value: fmt.Sprintf("%d", digest.ActiveAlerts)},
		{Name: "Generated", Value: digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	if p := digest.Previous; p != nil {
		facts = append(facts, TeamsFact{Name: "Vs Previous", Value: fmt.Sprintf("%+d", p.Delta)})
	}
	for _, impact := range sortedKeys(impactSummary(digest)) {
		facts = append(facts, TeamsFact{
			Name:  fmt.Sprintf("%s Impact", titleCase(impact)),
			Value: fmt.Sprintf("%d", impactSummary(digest)[impact]),
		})
	}
	message.Sections = append(message.Sections, TeamsSection{
		ActivityTitle: "Summary",
		Facts:         facts,
		Markdown:      true,
	})

	if len(digest.Changes) > 0 {
		var top []string
		for i, change := range digest.Changes {
			if i == 5 {
				break
			}
			top = append(top, fmt.Sprintf("**%s** - %s impact (%s)",
				change.Title, change.Impact, change.DetectedAt.Format("Jan 2")))
		}

		message.Sections = append(message.Sections, TeamsSection{
			ActivityTitle: "Notable Changes",
			ActivityText:  strings.Join(top, "\n\n"),
			Markdown:      true,
		})
	}

	return message
}

func (s *Service) sendAlertEmail(alert models.Alert) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title))
	m.SetBody("text/plain", fmt.Sprintf("%s\n\nEntity: %s\nDetected: %s\n",
		alert.Message, alert.EntityID, alert.CreatedAt.Format("2006-01-02 15:04:05 UTC")))

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *Service) sendDigestEmail(digest *models.Digest) error {
	subject := fmt.Sprintf("%s Market Watch - %s digest (%d changes)",
		s.config.OrgName, titleCase(digest.Period), digest.TotalChanges)

	htmlBody, err := s.buildEmailHTML(digest)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", s.buildEmailText(digest))
	m.AddAlternative("text/html", htmlBody)

	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

const digestHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Market Watch Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #0078d4; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .change { border-left: 4px solid #605e5c; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .change-title { font-weight: bold; margin-bottom: 5px; }
        .change-meta { color: #666; font-size: 0.9em; }
        .critical { border-left-color: #a80000; }
        .high { border-left-color: #d13438; }
        .medium { border-left-color: #ffb900; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.OrgName}} Market Watch</h1>
        <p>{{.Digest.Period}} digest generated on {{.Digest.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Total Changes:</strong> {{.Digest.TotalChanges}}</p>
        <p><strong>Active Alerts:</strong> {{.Digest.ActiveAlerts}}</p>
        {{range $impact, $count := .Impact}}
            <p><strong>{{$impact | title}} Impact:</strong> {{$count}}</p>
        {{end}}
    </div>

    {{if .Digest.Changes}}
    <h2>Changes</h2>
    {{range $index, $change := .Digest.Changes}}
        {{if lt $index 10}}
        <div class="change {{$change.Impact}}">
            <div class="change-title">{{$change.Title}}</div>
            <div class="change-meta">
                {{$change.EntityName}} on {{$change.Source}} | {{$change.DetectedAt.Format "Jan 2, 2006"}} | confidence {{$change.Confidence}}%
            </div>
            <p>{{$change.Description | truncate 200}}</p>
        </div>
        {{end}}
    {{end}}
    {{end}}

    <hr>
    <p><small>This digest was generated automatically by MozaWave Market Watch.</small></p>
</body>
</html>
`

func (s *Service) buildEmailHTML(digest *models.Digest) (string, error) {
	t := template.New("email").Funcs(template.FuncMap{
		"title": titleCase,
		"truncate": func(length int, s string) string {
			if len(s) <= length {
				return s
			}
			return s[:length] + "..."
		},
	})

	t, err := t.Parse(digestHTML)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	data := struct {
		OrgName string
		Digest  *models.Digest
		Impact  map[string]int
	}{s.config.OrgName, digest, impactSummary(digest)}
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *Service) buildEmailText(digest *models.Digest) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("%s Market Watch - %s digest\n", s.config.OrgName, titleCase(digest.Period)))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Total Changes: %d\n", digest.TotalChanges))
	text.WriteString(fmt.Sprintf("Active Alerts: %d\n", digest.ActiveAlerts))
	if p := digest.Previous; p != nil {
		text.WriteString(fmt.Sprintf("Vs Previous: %+d (%d changes)\n", p.Delta, p.TotalChanges))
	}

	impact := impactSummary(digest)
	for _, level := range sortedKeys(impact) {
		text.WriteString(fmt.Sprintf("%s Impact: %d\n", titleCase(level), impact[level]))
	}

	if len(digest.Changes) > 0 {
		text.WriteString("\nCHANGES\n")
		text.WriteString("=======\n")

		for i, change := range digest.Changes {
			if i == 10 {
				break
			}
			text.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, change.Title))
			text.WriteString(fmt.Sprintf("   Source: %s | Impact: %s | Date: %s\n",
				change.Source, change.Impact, change.DetectedAt.Format("Jan 2, 2006")))
			if change.Description != "" {
				text.WriteString(fmt.Sprintf("   %s\n", change.Description))
			}
		}
	}

	text.WriteString("\n---\nThis digest was generated automatically by MozaWave Market Watch.\n")

	return text.String()
}

func impactSummary(digest *models.Digest) map[string]int {
	if impact, ok := digest.Summary["impact"].(map[string]int); ok {
		return impact
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func periodWindow(period string) string {
	if period == "daily" {
		return "24 hours"
	}
	return "7 days"
}
