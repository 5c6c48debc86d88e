// Package jobstore persists crawl run state as per-job JSON files so that a
// crash between two categories loses at most the category in flight, and so
// the API can answer progress queries without touching a live run.
package jobstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shoplens/shop-crawler/internal/scraper"
)

// Store writes and reads job files under a single directory. Each job owns
// a status file, a product snapshot, and eventually the export artifacts.
type Store struct {
	dir string
}

// New creates the jobs directory if needed and returns a store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create jobs dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string { return s.dir }

// WriteStatus checkpoints the status line for a job.
func (s *Store) WriteStatus(jobID string, st scraper.Status) error {
	return s.writeJSON(s.StatusPath(jobID), st)
}

// WriteProducts checkpoints the full accumulator for a job.
func (s *Store) WriteProducts(jobID string, products []scraper.Product) error {
	if products == nil {
		products = []scraper.Product{}
	}
	return s.writeJSON(s.ProductsPath(jobID), products)
}

// ReadStatus loads a job's status line.
func (s *Store) ReadStatus(jobID string) (scraper.Status, error) {
	var st scraper.Status
	if err := s.readJSON(s.StatusPath(jobID), &st); err != nil {
		return scraper.Status{}, err
	}
	return st, nil
}

// ReadProducts loads a job's checkpointed products.
func (s *Store) ReadProducts(jobID string) ([]scraper.Product, error) {
	var products []scraper.Product
	if err := s.readJSON(s.ProductsPath(jobID), &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ListJobs returns the ids of all jobs with a status file, newest first by
// file modification time.
func (s *Store) ListJobs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read jobs dir: %w", err)
	}

	type job struct {
		id      string
		modTime int64
	}
	var jobs []job
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, "_status.json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		jobs = append(jobs, job{
			id:      strings.TrimSuffix(name, "_status.json"),
			modTime: info.ModTime().UnixNano(),
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].modTime > jobs[j].modTime })

	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.id)
	}
	return ids, nil
}

// LatestStatus returns the most recently updated job's status.
func (s *Store) LatestStatus() (scraper.Status, error) {
	ids, err := s.ListJobs()
	if err != nil {
		return scraper.Status{}, err
	}
	if len(ids) == 0 {
		return scraper.Status{}, os.ErrNotExist
	}
	return s.ReadStatus(ids[0])
}

// StatusPath returns the status file path for a job.
func (s *Store) StatusPath(jobID string) string {
	return filepath.Join(s.dir, jobID+"_status.json")
}

// ProductsPath returns the product snapshot path for a job.
func (s *Store) ProductsPath(jobID string) string {
	return filepath.Join(s.dir, jobID+".json")
}

// ExportPath returns where a job's Excel report lives.
func (s *Store) ExportPath(jobID string) string {
	return filepath.Join(s.dir, jobID+".xlsx")
}

// SnapshotPath returns where a job's deduplicated JSON snapshot lives.
func (s *Store) SnapshotPath(jobID string) string {
	return filepath.Join(s.dir, jobID+"_unique.json")
}

// writeJSON writes via a temp file and rename so a crash mid-write never
// leaves a truncated checkpoint behind.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
