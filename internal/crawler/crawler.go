// Package crawler manages crawl runs: one browser session and one goroutine
// per run, cooperative stop, and job lifecycle rows in the database.
package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shoplens/shop-crawler/internal/driver"
	"github.com/shoplens/shop-crawler/internal/export"
	"github.com/shoplens/shop-crawler/internal/jobstore"
	"github.com/shoplens/shop-crawler/internal/scraper"
	"github.com/shoplens/shop-crawler/internal/service"
	"github.com/shoplens/shop-crawler/internal/sites"
)

// Config holds crawl run configuration
type Config struct {
	Headless    bool
	SettleDelay time.Duration
}

// DefaultConfig returns default crawl run configuration
func DefaultConfig() *Config {
	return &Config{
		Headless:    true,
		SettleDelay: 2 * time.Second,
	}
}

// Service owns all active runs. Each run holds its own driver and goroutine;
// the service tracks them for progress queries, stop requests, and shutdown.
type Service struct {
	db    *gorm.DB
	store *jobstore.Store
	cfg   *Config
	log   *zap.Logger

	// newDriver is swapped for a fake in tests.
	newDriver func() (driver.Driver, error)

	mu           sync.Mutex
	runs         map[string]*activeRun
	wg           sync.WaitGroup
	shuttingDown bool
}

type activeRun struct {
	runner *scraper.Runner
	cancel context.CancelFunc
}

// NewService creates a run manager
func NewService(dbConn *gorm.DB, store *jobstore.Store, cfg *Config, log *zap.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Service{
		db:    dbConn,
		store: store,
		cfg:   cfg,
		log:   log,
		runs:  make(map[string]*activeRun),
	}
	s.newDriver = func() (driver.Driver, error) {
		rodCfg := driver.DefaultRodConfig()
		rodCfg.Headless = cfg.Headless
		return driver.NewRodDriver(rodCfg, log)
	}
	return s
}

// StartFullRun starts a run over every registered site.
func (s *Service) StartFullRun(userID uint) (string, error) {
	return s.StartRun(userID, sites.TargetURLs())
}

// StartRun records a job, launches a browser session, and starts the run in
// its own goroutine. It returns the job id immediately.
func (s *Service) StartRun(userID uint, urls []string) (string, error) {
	if len(urls) == 0 {
		return "", fmt.Errorf("no sites to crawl")
	}

	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return "", fmt.Errorf("service is shutting down")
	}
	s.mu.Unlock()

	jobID := uuid.NewString()
	if _, err := service.CreateJob(s.db, userID, jobID, urls); err != nil {
		return "", fmt.Errorf("failed to record job: %w", err)
	}

	drv, err := s.newDriver()
	if err != nil {
		return "", fmt.Errorf("failed to start browser session: %w", err)
	}

	exporter := export.NewExcel(s.store, s.log)
	recorder := &dbRecorder{db: s.db, log: s.log}
	runner := scraper.NewRunner(drv, s.store, exporter, recorder, s.cfg.SettleDelay, s.log)

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.runs[jobID] = &activeRun{runner: runner, cancel: cancel}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.runs, jobID)
			s.mu.Unlock()
		}()

		sum := runner.RunMany(ctx, jobID, urls)
		s.log.Info("run goroutine finished",
			zap.String("job", jobID), zap.Bool("success", sum.Success))
	}()

	s.log.Info("run started", zap.String("job", jobID), zap.Int("sites", len(urls)))
	return jobID, nil
}

// StopRun requests cooperative cancellation of an active run.
func (s *Service) StopRun(jobID string) error {
	s.mu.Lock()
	run, ok := s.runs[jobID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s is not running", jobID)
	}
	run.runner.Stop()
	run.cancel()
	s.log.Info("stop requested", zap.String("job", jobID))
	return nil
}

// Progress returns the latest status for a job, preferring the live run over
// the checkpoint file.
func (s *Service) Progress(jobID string) (scraper.Status, error) {
	s.mu.Lock()
	run, ok := s.runs[jobID]
	s.mu.Unlock()
	if ok {
		return run.runner.Progress(), nil
	}
	return s.store.ReadStatus(jobID)
}

// LatestProgress returns the status of any live run, falling back to the
// most recent checkpoint on disk.
func (s *Service) LatestProgress() (scraper.Status, error) {
	s.mu.Lock()
	for _, run := range s.runs {
		st := run.runner.Progress()
		s.mu.Unlock()
		return st, nil
	}
	s.mu.Unlock()
	return s.store.LatestStatus()
}

// Shutdown stops all active runs and waits for their goroutines to finish.
func (s *Service) Shutdown() {
	s.mu.Lock()
	s.shuttingDown = true
	for jobID, run := range s.runs {
		s.log.Info("stopping run for shutdown", zap.String("job", jobID))
		run.runner.Stop()
		run.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("all runs stopped")
}

// dbRecorder mirrors run lifecycle events into job rows. Database failures
// are logged and never interrupt a run.
type dbRecorder struct {
	db  *gorm.DB
	log *zap.Logger
}

func (r *dbRecorder) JobStarted(jobID string) {
	if err := service.MarkJobRunning(r.db, jobID); err != nil {
		r.log.Warn("failed to record job start", zap.String("job", jobID), zap.Error(err))
	}
}

func (r *dbRecorder) JobUpdated(jobID string, st scraper.Status) {
	if err := service.UpdateJobProgress(r.db, jobID, st); err != nil {
		r.log.Warn("failed to record job progress", zap.String("job", jobID), zap.Error(err))
	}
}

func (r *dbRecorder) JobFinished(jobID string, sum scraper.Summary) {
	if err := service.FinishJob(r.db, jobID, sum); err != nil {
		r.log.Warn("failed to record job finish", zap.String("job", jobID), zap.Error(err))
	}
}
