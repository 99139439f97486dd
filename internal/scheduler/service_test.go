package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mozawave/market-watch/internal/config"
	"github.com/mozawave/market-watch/internal/monitoring"
	"github.com/mozawave/market-watch/internal/reputation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRunner is a mock implementation of Runner
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) RunScanCycle(ctx context.Context) monitoring.ScanResult {
	args := m.Called(ctx)
	return args.Get(0).(monitoring.ScanResult)
}

func (m *MockRunner) RunReviewSync(ctx context.Context) reputation.ProcessResult {
	args := m.Called(ctx)
	return args.Get(0).(reputation.ProcessResult)
}

func (m *MockRunner) RunMetricsCycle(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockRunner) RunInsightCycle(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockRunner) RefreshWidgets() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockRunner) SendDigest(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		TimeZone:           "UTC",
		ReportSchedule:     "weekly",
		ScanInterval:       time.Minute,
		ReviewSyncInterval: 5 * time.Minute,
		MetricsInterval:    5 * time.Minute,
		InsightInterval:    time.Hour,
		WidgetInterval:     15 * time.Second,
	}
}

func TestDigestSpec(t *testing.T) {
	assert.Equal(t, "0 0 9 * * *", DigestSpec("daily"))
	assert.Equal(t, "0 0 9 * * MON", DigestSpec("weekly"))
	assert.Equal(t, "0 0 9 * * MON", DigestSpec(""))
}

func TestNewService_InvalidTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.TimeZone = "Mars/Olympus_Mons"

	_, err := NewService(cfg, &MockRunner{})
	assert.Error(t, err)
}

func TestService_Register(t *testing.T) {
	s, err := NewService(testConfig(), &MockRunner{})
	require.NoError(t, err)
	require.NoError(t, s.Register())

	specs := make(map[string]string)
	for _, j := range s.Jobs() {
		specs[j.Name] = j.Spec
	}
	assert.Equal(t, map[string]string{
		"scan":     "@every 1m0s",
		"reviews":  "@every 5m0s",
		"metrics":  "@every 5m0s",
		"insights": "@every 1h0m0s",
		"widgets":  "@every 15s",
		"digest":   "0 0 9 * * MON",
	}, specs)

	require.NoError(t, s.Register())
	assert.Len(t, s.Jobs(), 6, "registering twice is a no-op")
}

func TestService_RegisterSkipsDisabledIntervals(t *testing.T) {
	cfg := testConfig()
	cfg.InsightInterval = 0

	s, err := NewService(cfg, &MockRunner{})
	require.NoError(t, err)
	require.NoError(t, s.Register())

	for _, j := range s.Jobs() {
		assert.NotEqual(t, "insights", j.Name)
	}
	assert.Len(t, s.Jobs(), 5)
}

func TestService_RunNow(t *testing.T) {
	runner := &MockRunner{}
	runner.On("RunScanCycle", mock.Anything).Return(monitoring.ScanResult{Changes: 2}).Once()
	runner.On("RunMetricsCycle", mock.Anything).Once()
	runner.On("RefreshWidgets").Return(3).Once()
	runner.On("SendDigest", mock.Anything).Return(errors.New("smtp down")).Once()

	s, err := NewService(testConfig(), runner)
	require.NoError(t, err)
	require.NoError(t, s.Register())

	for _, name := range []string{"scan", "metrics", "widgets", "digest"} {
		require.NoError(t, s.RunNow(name))
	}
	assert.Error(t, s.RunNow("backup"))

	runner.AssertExpectations(t)
	runner.AssertNotCalled(t, "RunReviewSync", mock.Anything)
}

func TestService_StopCancelsJobs(t *testing.T) {
	runner := &MockRunner{}

	s, err := NewService(testConfig(), runner)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	require.NoError(t, s.RunNow("scan"))
	runner.AssertNotCalled(t, "RunScanCycle", mock.Anything)
}
