package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mozawave/market-watch/internal/config"
	"github.com/mozawave/market-watch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureMailer struct {
	sent []*gomail.Message
	err  error
}

func (c *captureMailer) DialAndSend(m ...*gomail.Message) error {
	c.sent = append(c.sent, m...)
	return c.err
}

var created = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func sampleAlert() models.Alert {
	return models.Alert{
		ID:        "a-1",
		EntityID:  "pizza-co",
		Severity:  models.SeverityCritical,
		Title:     "Pizza Co raised prices",
		Message:   "Price tier went from 1 to 4",
		CreatedAt: created,
		Status:    models.StatusNew,
	}
}

func sampleDigest() *models.Digest {
	return &models.Digest{
		GeneratedAt:  created,
		Period:       "weekly",
		TotalChanges: 2,
		ActiveAlerts: 1,
		Changes: []models.Change{
			{Title: "Pizza Co raised prices", EntityName: "Pizza Co", Source: "google", Impact: models.LevelHigh, Confidence: 85, DetectedAt: created},
			{Title: "Burger Barn rating dropped", EntityName: "Burger Barn", Source: "yelp", Impact: models.LevelMedium, Confidence: 90, DetectedAt: created},
		},
		Summary: map[string]interface{}{
			"impact": map[string]int{"high": 1, "medium": 1},
		},
	}
}

func TestService_SendAlertToTeams(t *testing.T) {
	var got TeamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewService(&config.Config{TeamsWebhookURL: server.URL, OrgName: "Luigi's"})
	require.NoError(t, svc.SendAlert(context.Background(), sampleAlert()))

	assert.Equal(t, "MessageCard", got.Type)
	assert.Equal(t, "[CRITICAL] Pizza Co raised prices", got.Title)
	assert.Equal(t, "A80000", got.ThemeColor)
}

func TestService_TeamsFailureIsReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewService(&config.Config{TeamsWebhookURL: server.URL})
	err := svc.SendAlert(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Teams")
}

func TestService_SendDigestByEmail(t *testing.T) {
	mailer := &captureMailer{}
	svc := NewService(&config.Config{NotificationEmail: "ops@luigis.test", SMTPUsername: "bot@luigis.test", OrgName: "Luigi's"})
	svc.mailer = mailer

	require.NoError(t, svc.SendDigest(context.Background(), sampleDigest()))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"Luigi's Market Watch - Weekly digest (2 changes)"}, mailer.sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{"ops@luigis.test"}, mailer.sent[0].GetHeader("To"))

	mailer.err = errors.New("smtp down")
	assert.Error(t, svc.SendDigest(context.Background(), sampleDigest()))
}

func TestService_DigestRendering(t *testing.T) {
	svc := NewService(&config.Config{OrgName: "Luigi's"})

	html, err := svc.buildEmailHTML(sampleDigest())
	require.NoError(t, err)
	assert.Contains(t, html, "Pizza Co raised prices")
	assert.Contains(t, html, "High Impact:")
	assert.Contains(t, html, `class="change high"`)

	text := svc.buildEmailText(sampleDigest())
	assert.Contains(t, text, "Total Changes: 2")
	assert.Contains(t, text, "Medium Impact: 1")
	assert.Contains(t, text, "2. Burger Barn rating dropped")

	card := svc.buildDigestCard(sampleDigest())
	assert.Equal(t, "Luigi's Market Watch - Weekly digest", card.Title)
	require.Len(t, card.Sections, 2)
}

func TestService_DigestShowsPreviousDelta(t *testing.T) {
	svc := NewService(&config.Config{OrgName: "Luigi's"})
	digest := sampleDigest()
	digest.Previous = &models.DigestComparison{GeneratedAt: created.Add(-7 * 24 * time.Hour), TotalChanges: 5, Delta: -3}

	assert.Contains(t, svc.buildEmailText(digest), "Vs Previous: -3 (5 changes)")

	card := svc.buildDigestCard(digest)
	assert.Contains(t, card.Sections[0].Facts, TeamsFact{Name: "Vs Previous", Value: "-3"})

	var out strings.Builder
	require.NoError(t, NewConsole(&out).SendDigest(context.Background(), digest))
	assert.Contains(t, out.String(), "-3 vs previous digest (5 changes)")
}

func TestService_NoChannelsIsNoop(t *testing.T) {
	svc := NewService(&config.Config{})
	assert.NoError(t, svc.SendAlert(context.Background(), sampleAlert()))
	assert.NoError(t, svc.SendDigest(context.Background(), sampleDigest()))
}

func TestSlackSink_SendAlert(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	sink := NewSlackSink(server.URL)
	assert.Equal(t, "slack", sink.Name())
	require.NoError(t, sink.SendAlert(context.Background(), sampleAlert()))

	attachments := got["attachments"].([]interface{})
	require.Len(t, attachments, 1)
	assert.Equal(t, "danger", attachments[0].(map[string]interface{})["color"])

	assert.Error(t, NewSlackSink("").SendAlert(context.Background(), sampleAlert()))
}

func TestSlackSink_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	assert.Error(t, NewSlackSink(server.URL).SendAlert(context.Background(), sampleAlert()))
}

type failingSink struct{ name string }

func (f failingSink) Name() string { return f.name }
func (f failingSink) SendAlert(ctx context.Context, alert models.Alert) error {
	return errors.New(f.name + " failed")
}

func TestMulti_JoinsErrors(t *testing.T) {
	m := Multi{Nop{}, failingSink{"a"}, failingSink{"b"}}
	err := m.SendAlert(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a failed")
	assert.Contains(t, err.Error(), "b failed")

	assert.NoError(t, Multi{Nop{}}.SendAlert(context.Background(), sampleAlert()))
}

func TestConsole(t *testing.T) {
	var out strings.Builder
	console := NewConsole(&out)

	require.NoError(t, console.SendAlert(context.Background(), models.Alert{
		Severity: models.SeverityCritical,
		Title:    "Pizza Co raised prices",
		Message:  "Price tier 1 -> 4",
	}))
	assert.Contains(t, out.String(), "[CRITICAL] Pizza Co raised prices")

	out.Reset()
	require.NoError(t, console.SendDigest(context.Background(), &models.Digest{
		Period:       "weekly",
		TotalChanges: 1,
		Changes:      []models.Change{{Title: "Pizza Co raised prices", Impact: models.LevelHigh}},
		Summary:      map[string]interface{}{"impact": map[string]int{"high": 1}},
	}))
	assert.Contains(t, out.String(), "MARKET WATCH WEEKLY DIGEST")
	assert.Contains(t, out.String(), "high:")
	assert.Contains(t, out.String(), "1. [high] Pizza Co raised prices")
}
