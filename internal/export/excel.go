// Package export turns a run's product accumulator into the deliverables:
// a styled Excel report, a stats sheet, and a deduplicated JSON snapshot.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/scraper"
)

const (
	productSheet = "Products"
	statsSheet   = "آمار"

	headerFill = "18AAC4"
	zebraFill  = "C2F0FF"
)

// Column order of the report. JSON snapshot fields follow the same names.
var columns = []struct {
	header string
	width  float64
	value  func(p scraper.Product) string
}{
	{"name", 40, func(p scraper.Product) string { return p.Name }},
	{"price", 15, func(p scraper.Product) string { return p.Price }},
	{"categories", 25, func(p scraper.Product) string { return p.Categories }},
	{"site", 20, func(p scraper.Product) string { return p.Site }},
	{"site_id", 15, func(p scraper.Product) string { return p.SiteID }},
	{"type", 10, func(p scraper.Product) string { return p.Type }},
	{"variation", 12, func(p scraper.Product) string { return p.Variation }},
	{"sku", 15, func(p scraper.Product) string { return p.SKU }},
	{"description", 50, func(p scraper.Product) string { return p.Description }},
	{"url", 40, func(p scraper.Product) string { return p.URL }},
	{"grouped_products", 18, func(p scraper.Product) string { return p.GroupedProducts }},
	{"scraped_at", 20, func(p scraper.Product) string { return p.ScrapedAt }},
}

// Paths resolves where a job's export artifacts go. Satisfied by the
// jobstore.
type Paths interface {
	ExportPath(jobID string) string
	SnapshotPath(jobID string) string
}

// Excel writes the run report. It implements the runner's Exporter contract.
type Excel struct {
	paths Paths
	log   *zap.Logger
	now   func() time.Time
}

// NewExcel returns an exporter writing through the given path resolver.
func NewExcel(paths Paths, log *zap.Logger) *Excel {
	return &Excel{paths: paths, log: log, now: time.Now}
}

// snapshot is the structured form of the {job}_unique.json artifact: the
// deduplicated product list wrapped with the run's dedup totals.
type snapshot struct {
	JobID             string            `json:"job_id"`
	TotalInitial      int               `json:"total_products_initial"`
	TotalFinal        int               `json:"total_products_final"`
	DuplicatesRemoved int               `json:"duplicates_removed"`
	Products          []scraper.Product `json:"products"`
	Timestamp         string            `json:"timestamp"`
}

// Export deduplicates the accumulator, writes the workbook and the JSON
// snapshot, and returns the workbook path. Exporting the same input twice
// produces the same report.
func (e *Excel) Export(jobID string, products []scraper.Product) (string, error) {
	unique := Dedup(products)
	e.log.Info("exporting products",
		zap.String("job", jobID),
		zap.Int("initial", len(products)), zap.Int("unique", len(unique)))

	path := e.paths.ExportPath(jobID)
	if err := writeWorkbook(path, products, unique); err != nil {
		return "", fmt.Errorf("write workbook: %w", err)
	}
	snap := snapshot{
		JobID:             jobID,
		TotalInitial:      len(products),
		TotalFinal:        len(unique),
		DuplicatesRemoved: len(products) - len(unique),
		Products:          unique,
		Timestamp:         e.now().Format(time.RFC3339),
	}
	if err := writeSnapshot(e.paths.SnapshotPath(jobID), snap); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// Dedup removes duplicates in two passes: first on (name, price, site), then
// on the full record. A run that collected anything always exports at least
// one record, even if deduplication would discard everything.
func Dedup(products []scraper.Product) []scraper.Product {
	var bySubset []scraper.Product
	seenSubset := make(map[string]bool)
	for _, p := range products {
		if seenSubset[p.SiteDedupKey()] {
			continue
		}
		bySubset = append(bySubset, p)
		seenSubset[p.SiteDedupKey()] = true
	}

	var unique []scraper.Product
	seenFull := make(map[scraper.Product]bool)
	for _, p := range bySubset {
		if seenFull[p] {
			continue
		}
		unique = append(unique, p)
		seenFull[p] = true
	}

	if len(unique) == 0 && len(products) > 0 {
		unique = products[:1]
	}
	return unique
}

func writeWorkbook(path string, original, unique []scraper.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", productSheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF", Size: 12},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Alignment: &excelize.Alignment{
			Horizontal: "center", Vertical: "center", WrapText: true,
		},
	})
	if err != nil {
		return err
	}
	zebraStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{zebraFill}},
	})
	if err != nil {
		return err
	}
	priceStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{zebraFill}},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return err
	}

	for i, col := range columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		cell := name + "1"
		if err := f.SetCellValue(productSheet, cell, col.header); err != nil {
			return err
		}
		if err := f.SetCellStyle(productSheet, cell, cell, headerStyle); err != nil {
			return err
		}
		if err := f.SetColWidth(productSheet, name, name, col.width); err != nil {
			return err
		}
	}

	for rowIdx, p := range unique {
		row := rowIdx + 2
		for colIdx, col := range columns {
			name, err := excelize.ColumnNumberToName(colIdx + 1)
			if err != nil {
				return err
			}
			cell := fmt.Sprintf("%s%d", name, row)
			if err := f.SetCellValue(productSheet, cell, col.value(p)); err != nil {
				return err
			}
			if row%2 == 0 {
				style := zebraStyle
				if col.header == "price" {
					style = priceStyle
				}
				if err := f.SetCellStyle(productSheet, cell, cell, style); err != nil {
					return err
				}
			}
		}
	}

	if err := f.SetPanes(productSheet, &excelize.Panes{
		Freeze: true, Split: false, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}

	if err := writeStats(f, original, unique); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// writeStats adds the summary sheet: run totals and per-site counts over the
// deduplicated set.
func writeStats(f *excelize.File, original, unique []scraper.Product) error {
	if _, err := f.NewSheet(statsSheet); err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, p := range unique {
		counts[p.Site]++
	}
	siteNames := make([]string, 0, len(counts))
	for site := range counts {
		siteNames = append(siteNames, site)
	}
	sort.Strings(siteNames)

	rows := [][]any{
		{"شاخص", "مقدار"},
		{"تعداد اولیه", len(original)},
		{"تعداد نهایی", len(unique)},
		{"تکراری حذف شده", len(original) - len(unique)},
	}
	for _, site := range siteNames {
		rows = append(rows, []any{site, counts[site]})
	}

	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(statsSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(statsSheet, "A", "A", 30); err != nil {
		return err
	}
	return f.SetColWidth(statsSheet, "B", "B", 15)
}

func writeSnapshot(path string, snap snapshot) error {
	if snap.Products == nil {
		snap.Products = []scraper.Product{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
