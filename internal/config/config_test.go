package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.test/x")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "weekly", cfg.ReportSchedule)
	assert.Equal(t, 60*time.Second, cfg.ScanInterval)
	assert.Equal(t, 5*time.Minute, cfg.ReviewSyncInterval)
	assert.Equal(t, 5*time.Minute, cfg.MetricsInterval)
	assert.Equal(t, time.Hour, cfg.InsightInterval)
	assert.Equal(t, "template", cfg.ResponderProvider)
	assert.Equal(t, 80, cfg.PositiveMinChars)
	assert.Empty(t, cfg.SourceEndpoints)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TEAMS_WEBHOOK_URL", "https://teams.test/hook")
	t.Setenv("SCAN_INTERVAL", "2m")
	t.Setenv("SCAN_CONCURRENCY", "8")
	t.Setenv("SOURCE_ENDPOINTS", "google=https://g.test/snap, yelp=https://y.test/snap,broken")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, 2*time.Minute, cfg.ScanInterval)
	assert.Equal(t, 8, cfg.ScanConcurrency)
	assert.Equal(t, map[string]string{
		"google": "https://g.test/snap",
		"yelp":   "https://y.test/snap",
	}, cfg.SourceEndpoints)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "no notification method",
			env:  map[string]string{},
		},
		{
			name: "bad schedule",
			env:  map[string]string{"SLACK_WEBHOOK_URL": "x", "REPORT_SCHEDULE": "hourly"},
		},
		{
			name: "email without smtp",
			env:  map[string]string{"NOTIFICATION_EMAIL": "ops@example.com"},
		},
		{
			name: "openai without key",
			env:  map[string]string{"SLACK_WEBHOOK_URL": "x", "RESPONDER_PROVIDER": "openai"},
		},
		{
			name: "unknown provider",
			env:  map[string]string{"SLACK_WEBHOOK_URL": "x", "RESPONDER_PROVIDER": "markov"},
		},
		{
			name: "zero concurrency",
			env:  map[string]string{"SLACK_WEBHOOK_URL": "x", "SCAN_CONCURRENCY": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_SkipsValidation(t *testing.T) {
	t.Setenv("REPORT_SCHEDULE", "daily")

	cfg := FromEnv()
	assert.Equal(t, "daily", cfg.ReportSchedule)
	assert.Empty(t, cfg.SlackWebhookURL)
	assert.Equal(t, "default", cfg.OrgID)
}
