package export

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/jobstore"
	"github.com/shoplens/shop-crawler/internal/scraper"
)

func product(name, price, site string) scraper.Product {
	return scraper.Product{
		Name:       name,
		Price:      price,
		Site:       site,
		SiteID:     "dokhanmarket",
		Type:       "product",
		Variation:  "standard",
		Categories: "جویس",
	}
}

func TestDedupRemovesSubsetDuplicates(t *testing.T) {
	a := product("جویس هلو", "185000", "Dokhan Market")
	b := product("جویس هلو", "185000", "Dokhan Market")
	b.URL = "https://dokhanmarket3.com/product/1"
	c := product("جویس هلو", "185000", "Tajvape")

	unique := Dedup([]scraper.Product{a, b, c})

	// Same (name, price, site) collapses even when other fields differ;
	// another site survives.
	require.Len(t, unique, 2)
	assert.Equal(t, a, unique[0])
	assert.Equal(t, c, unique[1])
}

func TestDedupKeepsFirstOccurrence(t *testing.T) {
	first := product("پاد ایکس", "950000", "Dokhan Market")
	first.SKU = "PX-950"
	second := product("پاد ایکس", "950000", "Dokhan Market")

	unique := Dedup([]scraper.Product{first, second})

	require.Len(t, unique, 1)
	assert.Equal(t, "PX-950", unique[0].SKU)
}

func TestDedupIsIdempotent(t *testing.T) {
	products := []scraper.Product{
		product("جویس هلو", "185000", "Dokhan Market"),
		product("جویس هلو", "185000", "Dokhan Market"),
		product("جویس نعنا", "190000", "Dokhan Market"),
	}

	once := Dedup(products)
	twice := Dedup(once)

	assert.Equal(t, once, twice)
}

func TestDedupEmptyInput(t *testing.T) {
	assert.Empty(t, Dedup(nil))
}

func TestExportWritesWorkbookAndSnapshot(t *testing.T) {
	store, err := jobstore.New(t.TempDir())
	require.NoError(t, err)
	e := NewExcel(store, zap.NewNop())

	products := []scraper.Product{
		product("جویس هلو", "185000", "Dokhan Market"),
		product("جویس هلو", "185000", "Dokhan Market"),
		product("جویس نعنا", "190000", "Dokhan Market"),
	}

	path, err := e.Export("job-1", products)
	require.NoError(t, err)
	assert.Equal(t, store.ExportPath("job-1"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// Header row and deduplicated data rows.
	name, err := f.GetCellValue(productSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "name", name)

	row2, err := f.GetCellValue(productSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "جویس هلو", row2)

	row3, err := f.GetCellValue(productSheet, "A3")
	require.NoError(t, err)
	assert.Equal(t, "جویس نعنا", row3)

	row4, err := f.GetCellValue(productSheet, "A4")
	require.NoError(t, err)
	assert.Empty(t, row4, "duplicate must not produce a third data row")

	price2, err := f.GetCellValue(productSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "185000", price2)

	// Stats sheet exists and carries the run totals.
	initial, err := f.GetCellValue(statsSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "3", initial)
	final, err := f.GetCellValue(statsSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "2", final)

	// JSON snapshot wraps the deduplicated set with the run's dedup totals.
	data, err := os.ReadFile(store.SnapshotPath("job-1"))
	require.NoError(t, err)
	var snap snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "job-1", snap.JobID)
	assert.Equal(t, 3, snap.TotalInitial)
	assert.Equal(t, 2, snap.TotalFinal)
	assert.Equal(t, 1, snap.DuplicatesRemoved)
	assert.Len(t, snap.Products, 2)
	assert.NotEmpty(t, snap.Timestamp)
}

func TestSnapshotFieldNames(t *testing.T) {
	store, err := jobstore.New(t.TempDir())
	require.NoError(t, err)
	e := NewExcel(store, zap.NewNop())

	_, err = e.Export("job-1", []scraper.Product{product("جویس هلو", "185000", "Dokhan Market")})
	require.NoError(t, err)

	data, err := os.ReadFile(store.SnapshotPath("job-1"))
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{
		"job_id", "total_products_initial", "total_products_final",
		"duplicates_removed", "products", "timestamp",
	} {
		assert.Contains(t, raw, key)
	}
}

func TestExportIsIdempotent(t *testing.T) {
	store, err := jobstore.New(t.TempDir())
	require.NoError(t, err)
	e := NewExcel(store, zap.NewNop())
	products := []scraper.Product{product("جویس هلو", "185000", "Dokhan Market")}

	first, err := e.Export("job-1", products)
	require.NoError(t, err)
	second, err := e.Export("job-1", products)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	f, err := excelize.OpenFile(second)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(productSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "header plus one data row")
}
