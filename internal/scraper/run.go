package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/driver"
	"github.com/shoplens/shop-crawler/internal/sites"
)

// Run status values, shared with persistence and the API.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusStopped   = "stopped"
)

// Status is the externally visible state of a run, checkpointed after every
// category so a crash loses at most the category in flight.
type Status struct {
	JobID           string         `json:"job_id"`
	Status          string         `json:"status"`
	CurrentSite     string         `json:"current_site"`
	CurrentCategory string         `json:"current_category"`
	Page            int            `json:"page"`
	SitesDone       int            `json:"sites_done"`
	TotalSites      int            `json:"total_sites"`
	TotalProducts   int            `json:"total_products"`
	SiteCounts      map[string]int `json:"site_counts"`
	Message         string         `json:"message,omitempty"`
	UpdatedAt       string         `json:"updated_at"`
}

// Summary is the final outcome of a run.
type Summary struct {
	Success       bool           `json:"success"`
	JobID         string         `json:"job_id"`
	TotalProducts int            `json:"total_products"`
	SiteCounts    map[string]int `json:"site_counts"`
	ExportPath    string         `json:"export_path,omitempty"`
	Message       string         `json:"message"`
}

// Store checkpoints run state between categories.
type Store interface {
	WriteStatus(jobID string, st Status) error
	WriteProducts(jobID string, products []Product) error
}

// Exporter turns the run accumulator into the final report and returns its
// path.
type Exporter interface {
	Export(jobID string, products []Product) (string, error)
}

// Recorder receives job lifecycle events, typically backed by the database.
type Recorder interface {
	JobStarted(jobID string)
	JobUpdated(jobID string, st Status)
	JobFinished(jobID string, sum Summary)
}

// NopRecorder discards lifecycle events. Used by the one-shot CLI.
type NopRecorder struct{}

func (NopRecorder) JobStarted(string)           {}
func (NopRecorder) JobUpdated(string, Status)   {}
func (NopRecorder) JobFinished(string, Summary) {}

// Runner drives a whole crawl: identify each seed, discover its categories,
// crawl them in order, checkpoint after every category, and export at the
// end. A Runner owns its driver exclusively and runs at most once.
type Runner struct {
	drv      driver.Driver
	store    Store
	exporter Exporter
	recorder Recorder
	settle   time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	status  Status
	stopped bool
	started bool
}

// NewRunner assembles a runner. The settle delay applies between categories
// and between page loads inside a category; tests pass zero.
func NewRunner(drv driver.Driver, store Store, exporter Exporter, recorder Recorder, settle time.Duration, log *zap.Logger) *Runner {
	return &Runner{drv: drv, store: store, exporter: exporter, recorder: recorder, settle: settle, log: log}
}

// Stop requests cooperative cancellation. The run finishes the page in
// flight, checkpoints, and returns a stopped summary.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

// Progress returns a copy of the latest checkpointed status.
func (r *Runner) Progress() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.status
	st.SiteCounts = copyCounts(r.status.SiteCounts)
	return st
}

// RunAll crawls the full registry in canonical order.
func (r *Runner) RunAll(ctx context.Context, jobID string) Summary {
	return r.RunMany(ctx, jobID, sites.TargetURLs())
}

// RunMany crawls the given seed URLs strictly in order. The driver is
// released exactly once regardless of outcome, and a panic anywhere in the
// run degrades to a failure summary carrying whatever was already
// checkpointed.
func (r *Runner) RunMany(ctx context.Context, jobID string, urls []string) (sum Summary) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return Summary{JobID: jobID, Message: "runner already used"}
	}
	r.started = true
	r.status = Status{
		JobID:      jobID,
		Status:     StatusRunning,
		TotalSites: len(urls),
		SiteCounts: make(map[string]int),
	}
	r.mu.Unlock()

	var all []Product
	seen := make(map[string]bool)
	counts := make(map[string]int)

	defer func() {
		if err := r.drv.Close(); err != nil {
			r.log.Warn("failed to release driver", zap.Error(err))
		}
	}()
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("crawl run panicked", zap.String("job", jobID), zap.Any("panic", rec))
			sum = r.finish(jobID, all, counts, StatusFailed, fmt.Sprintf("run aborted: %v", rec))
		}
	}()

	r.recorder.JobStarted(jobID)
	r.log.Info("crawl run started", zap.String("job", jobID), zap.Int("sites", len(urls)))

	for i, seedURL := range urls {
		if r.interrupted(ctx) {
			return r.finish(jobID, all, counts, StatusStopped, "run stopped")
		}

		siteID := Identify(r.drv, seedURL, r.log)
		rs := sites.Get(siteID)
		r.checkpoint(jobID, all, func(st *Status) {
			st.CurrentSite = rs.Name
			st.CurrentCategory = ""
			st.SitesDone = i
		})

		categories := DiscoverCategories(r.drv, seedURL, siteID, r.log)
		crawler := NewCategoryCrawler(r.drv, NewExtractor(r.log), NewPaginator(r.log), r.settle, r.log)

		for _, cat := range categories {
			if r.interrupted(ctx) {
				return r.finish(jobID, all, counts, StatusStopped, "run stopped")
			}

			// Return to the site root between categories so relative menus
			// resolve the same way every time.
			if err := r.drv.Navigate(seedURL); err != nil {
				r.log.Warn("failed to return to site root",
					zap.String("site", siteID), zap.Error(err))
			}

			crawler.OnProgress(func(page, total int) {
				r.mu.Lock()
				r.status.Page = page
				r.mu.Unlock()
			})
			result := crawler.Run(ctx, cat)

			fresh := 0
			for _, p := range result.Products {
				if seen[p.SiteDedupKey()] {
					continue
				}
				all = append(all, p)
				seen[p.SiteDedupKey()] = true
				counts[p.Site]++
				fresh++
			}
			r.log.Info("category merged",
				zap.String("category", cat.Name), zap.Int("new", fresh), zap.Int("total", len(all)))

			r.checkpoint(jobID, all, func(st *Status) {
				st.CurrentCategory = cat.Name
				st.TotalProducts = len(all)
				st.SiteCounts = copyCounts(counts)
			})
			time.Sleep(r.settle)
		}

		r.checkpoint(jobID, all, func(st *Status) { st.SitesDone = i + 1 })
	}

	if len(all) == 0 {
		return r.finish(jobID, all, counts, StatusFailed, "no products found on any site")
	}
	return r.finish(jobID, all, counts, StatusCompleted, fmt.Sprintf("extracted %d products", len(all)))
}

// interrupted reports whether the run was stopped or its context cancelled.
func (r *Runner) interrupted(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// checkpoint mutates the shared status under lock, then persists the status
// line and the full accumulator. Persistence failures are logged and do not
// interrupt the run.
func (r *Runner) checkpoint(jobID string, all []Product, mutate func(*Status)) {
	r.mu.Lock()
	mutate(&r.status)
	r.status.UpdatedAt = time.Now().Format(scrapedAtLayout)
	st := r.status
	r.mu.Unlock()

	if err := r.store.WriteStatus(jobID, st); err != nil {
		r.log.Warn("failed to checkpoint status", zap.String("job", jobID), zap.Error(err))
	}
	if err := r.store.WriteProducts(jobID, all); err != nil {
		r.log.Warn("failed to checkpoint products", zap.String("job", jobID), zap.Error(err))
	}
	r.recorder.JobUpdated(jobID, st)
}

// finish exports when anything was collected, writes the terminal status,
// and builds the summary. A failed export downgrades a completed run to
// failed but keeps the collected totals.
func (r *Runner) finish(jobID string, all []Product, counts map[string]int, status, message string) Summary {
	exportPath := ""
	if len(all) > 0 {
		path, err := r.exporter.Export(jobID, all)
		if err != nil {
			r.log.Error("export failed", zap.String("job", jobID), zap.Error(err))
			status = StatusFailed
			message = fmt.Sprintf("export failed: %v", err)
		} else {
			exportPath = path
		}
	}

	r.checkpoint(jobID, all, func(st *Status) {
		st.Status = status
		st.TotalProducts = len(all)
		st.SiteCounts = copyCounts(counts)
		st.Message = message
	})

	sum := Summary{
		Success:       status == StatusCompleted,
		JobID:         jobID,
		TotalProducts: len(all),
		SiteCounts:    copyCounts(counts),
		ExportPath:    exportPath,
		Message:       message,
	}
	r.recorder.JobFinished(jobID, sum)
	r.log.Info("crawl run finished",
		zap.String("job", jobID), zap.String("status", status), zap.Int("products", len(all)))
	return sum
}

func copyCounts(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for site, n := range counts {
		out[site] = n
	}
	return out
}
