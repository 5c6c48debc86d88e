package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/driver/drivertest"
)

// memStore records checkpoints in memory.
type memStore struct {
	statuses []Status
	products [][]Product
}

func (m *memStore) WriteStatus(jobID string, st Status) error {
	m.statuses = append(m.statuses, st)
	return nil
}

func (m *memStore) WriteProducts(jobID string, products []Product) error {
	snapshot := make([]Product, len(products))
	copy(snapshot, products)
	m.products = append(m.products, snapshot)
	return nil
}

// memExporter records what was exported.
type memExporter struct {
	calls    int
	products []Product
	path     string
}

func (m *memExporter) Export(jobID string, products []Product) (string, error) {
	m.calls++
	m.products = products
	m.path = "tmp_jobs/" + jobID + ".xlsx"
	return m.path, nil
}

// memRecorder records lifecycle events.
type memRecorder struct {
	started  []string
	finished []Summary
}

func (m *memRecorder) JobStarted(jobID string)         { m.started = append(m.started, jobID) }
func (m *memRecorder) JobUpdated(string, Status)       {}
func (m *memRecorder) JobFinished(_ string, s Summary) { m.finished = append(m.finished, s) }

// dokhanSite scripts a minimal but complete storefront: a root page with one
// category link and a category page with two products.
func dokhanSite(d *drivertest.Fake) {
	root := d.AddPage(dokhanRoot)
	root.Add(`a[href*="category"]`,
		drivertest.Link("جویس و سالت", dokhanRoot+"/category/juice"))

	cat := d.AddPage(dokhanRoot + "/category/juice")
	cat.Add(".product-card",
		drivertest.ProductBlock("جویس هلو", "185,000"),
		drivertest.ProductBlock("جویس نعنا", "190,000"),
	)
}

func TestRunManyHappyPath(t *testing.T) {
	d := drivertest.NewFake()
	dokhanSite(d)
	store := &memStore{}
	exporter := &memExporter{}
	recorder := &memRecorder{}
	runner := NewRunner(d, store, exporter, recorder, 0, zap.NewNop())

	sum := runner.RunMany(context.Background(), "job-1", []string{dokhanRoot})

	assert.True(t, sum.Success)
	assert.Equal(t, "job-1", sum.JobID)
	assert.Equal(t, 2, sum.TotalProducts)
	assert.Equal(t, map[string]int{"Dokhan Market": 2}, sum.SiteCounts)
	assert.Equal(t, exporter.path, sum.ExportPath)

	assert.Equal(t, 1, exporter.calls)
	assert.Len(t, exporter.products, 2)

	assert.Equal(t, []string{"job-1"}, recorder.started)
	require.Len(t, recorder.finished, 1)
	assert.True(t, recorder.finished[0].Success)

	assert.Equal(t, 1, d.Closed, "driver released exactly once")

	// Terminal status is the last checkpoint.
	require.NotEmpty(t, store.statuses)
	last := store.statuses[len(store.statuses)-1]
	assert.Equal(t, StatusCompleted, last.Status)
	assert.Equal(t, 2, last.TotalProducts)
}

func TestRunManyCheckpointsAfterEveryCategory(t *testing.T) {
	d := drivertest.NewFake()
	root := d.AddPage(dokhanRoot)
	root.Add(`a[href*="category"]`,
		drivertest.Link("جویس و سالت", dokhanRoot+"/category/juice"),
		drivertest.Link("پاد سیستم", dokhanRoot+"/category/pods"),
	)
	juice := d.AddPage(dokhanRoot + "/category/juice")
	juice.Add(".product-card", drivertest.ProductBlock("جویس هلو", "185,000"))
	pods := d.AddPage(dokhanRoot + "/category/pods")
	pods.Add(".product-card", drivertest.ProductBlock("پاد ایکس", "950,000"))

	store := &memStore{}
	runner := NewRunner(d, store, &memExporter{}, &memRecorder{}, 0, zap.NewNop())

	sum := runner.RunMany(context.Background(), "job-2", []string{dokhanRoot})

	assert.Equal(t, 2, sum.TotalProducts)

	// A crash between the two categories would have preserved the first
	// category's products: some snapshot holds exactly one record.
	var sawPartial bool
	for _, snapshot := range store.products {
		if len(snapshot) == 1 && snapshot[0].Name == "جویس هلو" {
			sawPartial = true
		}
	}
	assert.True(t, sawPartial, "first category must be checkpointed before the second is crawled")
}

func TestRunManyDedupsAcrossCategories(t *testing.T) {
	d := drivertest.NewFake()
	root := d.AddPage(dokhanRoot)
	root.Add(`a[href*="category"]`,
		drivertest.Link("جویس و سالت", dokhanRoot+"/category/juice"),
		drivertest.Link("پرفروش ترین ها", dokhanRoot+"/category/best"),
	)
	juice := d.AddPage(dokhanRoot + "/category/juice")
	juice.Add(".product-card", drivertest.ProductBlock("جویس هلو", "185,000"))
	best := d.AddPage(dokhanRoot + "/category/best")
	best.Add(".product-card", drivertest.ProductBlock("جویس هلو", "185,000"))

	runner := NewRunner(d, &memStore{}, &memExporter{}, &memRecorder{}, 0, zap.NewNop())

	sum := runner.RunMany(context.Background(), "job-3", []string{dokhanRoot})

	assert.Equal(t, 1, sum.TotalProducts)
}

func TestRunManyStopBeforeStart(t *testing.T) {
	d := drivertest.NewFake()
	dokhanSite(d)
	exporter := &memExporter{}
	runner := NewRunner(d, &memStore{}, exporter, &memRecorder{}, 0, zap.NewNop())

	runner.Stop()
	sum := runner.RunMany(context.Background(), "job-4", []string{dokhanRoot})

	assert.False(t, sum.Success)
	assert.Zero(t, sum.TotalProducts)
	assert.Zero(t, exporter.calls, "nothing collected, nothing exported")
	assert.Equal(t, 1, d.Closed)
}

func TestRunManyEmptyRunFails(t *testing.T) {
	d := drivertest.NewFake()
	d.AddPage(dokhanRoot)
	d.AddPage(dokhanRoot + "/category/juice")
	runner := NewRunner(d, &memStore{}, &memExporter{}, &memRecorder{}, 0, zap.NewNop())

	sum := runner.RunMany(context.Background(), "job-5", []string{dokhanRoot})

	assert.False(t, sum.Success)
	assert.Zero(t, sum.TotalProducts)
}

func TestRunnerRunsOnlyOnce(t *testing.T) {
	d := drivertest.NewFake()
	dokhanSite(d)
	runner := NewRunner(d, &memStore{}, &memExporter{}, &memRecorder{}, 0, zap.NewNop())

	first := runner.RunMany(context.Background(), "job-6", []string{dokhanRoot})
	second := runner.RunMany(context.Background(), "job-6", []string{dokhanRoot})

	assert.True(t, first.Success)
	assert.False(t, second.Success)
}

// panicStore blows up on the first non-empty checkpoint, simulating a crash
// mid-run. It fires only once so the recovery path can still checkpoint.
type panicStore struct {
	memStore
	fired bool
}

func (p *panicStore) WriteProducts(jobID string, products []Product) error {
	if len(products) > 0 && !p.fired {
		p.fired = true
		panic("disk on fire")
	}
	return p.memStore.WriteProducts(jobID, products)
}

func TestRunManyRecoversFromPanic(t *testing.T) {
	d := drivertest.NewFake()
	dokhanSite(d)
	runner := NewRunner(d, &panicStore{}, &memExporter{}, &memRecorder{}, 0, zap.NewNop())

	sum := runner.RunMany(context.Background(), "job-7", []string{dokhanRoot})

	assert.False(t, sum.Success)
	assert.Contains(t, sum.Message, "run aborted")
	assert.Equal(t, 1, d.Closed, "driver released despite the panic")
}

func TestRunnerProgressSnapshot(t *testing.T) {
	d := drivertest.NewFake()
	dokhanSite(d)
	runner := NewRunner(d, &memStore{}, &memExporter{}, &memRecorder{}, 0, zap.NewNop())

	runner.RunMany(context.Background(), "job-8", []string{dokhanRoot})

	st := runner.Progress()
	assert.Equal(t, "job-8", st.JobID)
	assert.Equal(t, StatusCompleted, st.Status)
	assert.Equal(t, 2, st.TotalProducts)
	assert.Equal(t, 1, st.SitesDone)
}
