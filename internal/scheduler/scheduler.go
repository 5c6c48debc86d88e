// Package scheduler triggers full crawl runs on a cron schedule.
package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler wraps a cron instance around a run-starting callback.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

// New registers the start callback under the given cron spec. The callback
// returns the started job's id.
func New(spec string, start func() (string, error), log *zap.Logger) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		jobID, err := start()
		if err != nil {
			log.Error("scheduled run failed to start", zap.Error(err))
			return
		}
		log.Info("scheduled run started", zap.String("job", jobID))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return &Scheduler{cron: c, log: log}, nil
}

// Start begins running the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop halts the schedule and waits for a running trigger to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}
