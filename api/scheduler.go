/*
scheduler.go - Weekly draft generation job

PURPOSE:
  Generates next week's draft schedule for every establishment on a cron
  schedule so managers start from a draft instead of an empty week.

DESIGN:
  - robfig/cron with SkipIfStillRunning: a slow run is never overlapped
  - Targets the week after the one containing "now"
  - Never forces: weeks that already have a schedule are skipped
  - Each run is bounded by Timeout

CONFIGURATION:
  - Spec:    cron expression (default "0 6 * * 5", Friday 06:00)
  - Enabled: whether the job is registered at all
  - Timeout: per-run context deadline (default: 5 minutes)

USAGE:
  job := NewDraftScheduler(svc, cfg.DraftCron, log)
  if err := job.Start(); err != nil { ... }
  // ... later
  job.Stop()

SEE ALSO:
  - handlers.go: GenerateDrafts endpoint (manual run)
  - service/schedules.go: GenerateDrafts
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/service"
)

// DraftScheduler runs the weekly draft job.
type DraftScheduler struct {
	Service *service.Service
	Spec    string
	Enabled bool
	Timeout time.Duration

	log  logrus.FieldLogger
	now  func() time.Time
	cron *cron.Cron
	mu   sync.Mutex
}

// NewDraftScheduler creates an enabled scheduler.
func NewDraftScheduler(svc *service.Service, spec string, log logrus.FieldLogger) *DraftScheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DraftScheduler{
		Service: svc,
		Spec:    spec,
		Enabled: true,
		Timeout: 5 * time.Minute,
		log:     log,
		now:     time.Now,
	}
}

// Start registers the job and starts the cron runner.
func (ds *DraftScheduler) Start() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if !ds.Enabled {
		ds.log.Info("draft scheduler disabled, not starting")
		return nil
	}
	if ds.cron != nil {
		return nil
	}

	cronLog := cron.PrintfLogger(ds.log)
	c := cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)))
	if _, err := c.AddFunc(ds.Spec, ds.run); err != nil {
		return fmt.Errorf("invalid draft schedule %q: %w", ds.Spec, err)
	}
	c.Start()
	ds.cron = c

	ds.log.WithField("spec", ds.Spec).Info("draft scheduler started")
	return nil
}

// Stop waits for a running job to finish.
func (ds *DraftScheduler) Stop() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.cron != nil {
		<-ds.cron.Stop().Done()
		ds.cron = nil
		ds.log.Info("draft scheduler stopped")
	}
}

func (ds *DraftScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), ds.Timeout)
	defer cancel()
	if _, err := ds.RunOnce(ctx); err != nil {
		ds.log.WithError(err).Error("weekly draft run failed")
	}
}

// RunOnce generates drafts for the week after the current one.
func (ds *DraftScheduler) RunOnce(ctx context.Context) (service.DraftRun, error) {
	return ds.Service.GenerateDrafts(ctx, ds.NextWeek())
}

// NextWeek is the Monday of the week after now.
func (ds *DraftScheduler) NextWeek() calendar.Date {
	return calendar.WeekStart(calendar.FromTime(ds.now())).AddDays(7)
}
