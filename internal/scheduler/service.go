package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/mozawave/market-watch/internal/config"
	"github.com/mozawave/market-watch/internal/monitoring"
	"github.com/mozawave/market-watch/internal/reputation"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner is the set of cycles the scheduler drives
type Runner interface {
	RunScanCycle(ctx context.Context) monitoring.ScanResult
	RunReviewSync(ctx context.Context) reputation.ProcessResult
	RunMetricsCycle(ctx context.Context)
	RunInsightCycle(ctx context.Context)
	RefreshWidgets() int
	SendDigest(ctx context.Context) error
}

// Job is a registered schedule entry
type Job struct {
	Name string
	Spec string
	ID   cron.EntryID
}

// Service handles scheduling of monitoring cycles
type Service struct {
	config *config.Config
	runner Runner
	cron   *cron.Cron
	jobs   []Job

	ctx    context.Context
	cancel context.CancelFunc
}

// NewService creates a new scheduler service. Overlapping runs of the same
// job are skipped.
func NewService(cfg *config.Config, runner Runner) (*Service, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.TimeZone, err)
	}

	logger := cron.PrintfLogger(logrus.StandardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		config: cfg,
		runner: runner,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// DigestSpec returns the cron expression for the report schedule
func DigestSpec(schedule string) string {
	switch schedule {
	case "daily":
		// Run daily at 9 AM
		return "0 0 9 * * *"
	default:
		// Run weekly on Monday at 9 AM
		return "0 0 9 * * MON"
	}
}

func every(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}

// Register adds every job without starting the scheduler
func (s *Service) Register() error {
	if len(s.jobs) > 0 {
		return nil
	}

	jobs := []struct {
		name     string
		interval time.Duration
		spec     string
		run      func(ctx context.Context)
	}{
		{name: "scan", interval: s.config.ScanInterval, run: func(ctx context.Context) {
			result := s.runner.RunScanCycle(ctx)
			logrus.WithField("job", "scan").Debugf("Scan found %d changes", result.Changes)
		}},
		{name: "reviews", interval: s.config.ReviewSyncInterval, run: func(ctx context.Context) {
			result := s.runner.RunReviewSync(ctx)
			logrus.WithField("job", "reviews").Debugf("Drafted %d responses", result.Generated)
		}},
		{name: "metrics", interval: s.config.MetricsInterval, run: s.runner.RunMetricsCycle},
		{name: "insights", interval: s.config.InsightInterval, run: s.runner.RunInsightCycle},
		{name: "widgets", interval: s.config.WidgetInterval, run: func(context.Context) {
			s.runner.RefreshWidgets()
		}},
		{name: "digest", spec: DigestSpec(s.config.ReportSchedule), run: func(ctx context.Context) {
			logrus.WithField("job", "digest").Info("Starting scheduled digest")
			if err := s.runner.SendDigest(ctx); err != nil {
				logrus.WithField("job", "digest").Errorf("Scheduled digest failed: %v", err)
			}
		}},
	}

	for _, j := range jobs {
		spec := j.spec
		if spec == "" {
			if j.interval <= 0 {
				logrus.WithField("job", j.name).Warn("Job disabled: no interval configured")
				continue
			}
			spec = every(j.interval)
		}

		run := j.run
		id, err := s.cron.AddFunc(spec, func() {
			if s.ctx.Err() != nil {
				return
			}
			run(s.ctx)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s job: %w", j.name, err)
		}
		s.jobs = append(s.jobs, Job{Name: j.name, Spec: spec, ID: id})
	}
	return nil
}

// Jobs lists the registered jobs
func (s *Service) Jobs() []Job {
	return append([]Job(nil), s.jobs...)
}

// RunNow runs a registered job synchronously through the job chain
func (s *Service) RunNow(name string) error {
	for _, j := range s.jobs {
		if j.Name == name {
			s.cron.Entry(j.ID).WrappedJob.Run()
			return nil
		}
	}
	return fmt.Errorf("unknown job %q", name)
}

// Start registers the jobs and begins the schedule
func (s *Service) Start() error {
	if err := s.Register(); err != nil {
		return err
	}
	s.cron.Start()
	logrus.Infof("Scheduler started with %d jobs and %s digest", len(s.jobs), s.config.ReportSchedule)
	return nil
}

// Stop cancels running jobs and waits for them to return or for ctx to expire
func (s *Service) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		logrus.Info("Scheduler stopped")
	case <-ctx.Done():
		logrus.Warn("Scheduler stop timed out with jobs still running")
	}
}
