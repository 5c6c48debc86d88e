package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/driver"
)

const (
	// maxPagesPerCategory is the hard pagination cap for one category.
	maxPagesPerCategory = 50
	// maxEmptyStreak halts pagination after this many consecutive pages
	// yielding no new products. The value of 1 is the only real circuit
	// breaker for a category and stops at the very first empty or
	// duplicate-only page.
	maxEmptyStreak = 1
)

// CategoryResult is the outcome of crawling one category.
type CategoryResult struct {
	Products []Product
	Pages    int
}

// CategoryCrawler walks one category listing page by page: extract, merge
// with (name, price) dedup, then advance by click or synthesized URL until
// the page cap, the empty-page streak cap, or exhaustion.
type CategoryCrawler struct {
	drv       driver.Driver
	extractor *Extractor
	paginator *Paginator
	settle    time.Duration
	log       *zap.Logger

	// progress, when set, is invoked after each page with the page number
	// and the category-wide product count.
	progress func(page, total int)
}

// NewCategoryCrawler wires a crawler over one driver session.
func NewCategoryCrawler(drv driver.Driver, extractor *Extractor, paginator *Paginator, settle time.Duration, log *zap.Logger) *CategoryCrawler {
	return &CategoryCrawler{drv: drv, extractor: extractor, paginator: paginator, settle: settle, log: log}
}

// OnProgress registers a per-page progress callback.
func (c *CategoryCrawler) OnProgress(fn func(page, total int)) {
	c.progress = fn
}

// Run crawls the category until done. Navigation and extraction failures
// count as empty pages and trigger one direct URL-synthesis recovery before
// the streak cap applies. Cancellation is checked at the top of every page.
func (c *CategoryCrawler) Run(ctx context.Context, cat Category) CategoryResult {
	c.log.Info("starting category crawl",
		zap.String("category", cat.Name), zap.String("site", cat.SiteID))

	var all []Product
	seen := make(map[string]bool)

	page := 1
	pagesCrawled := 0
	emptyStreak := 0
	navErr := c.drv.Navigate(cat.URL)

	for page <= maxPagesPerCategory && emptyStreak < maxEmptyStreak {
		if ctx.Err() != nil {
			c.log.Info("category crawl cancelled", zap.String("category", cat.Name))
			break
		}

		if navErr != nil {
			// The page never loaded; count it as empty and try the next
			// page by direct URL before giving up on the streak.
			c.log.Warn("page failed to load",
				zap.String("category", cat.Name), zap.Int("page", page), zap.Error(navErr))
			emptyStreak++
			if emptyStreak >= maxEmptyStreak {
				break
			}
			navErr = c.drv.Navigate(SynthesizeURL(cat.URL, page+1, cat.SiteID))
			page++
			continue
		}

		pagesCrawled++
		products := c.extractor.ExtractPage(c.drv, cat.Name, cat.SiteID)
		if len(products) == 0 {
			products = c.extractor.ExtractFallback(c.drv, cat.Name, cat.SiteID)
		}

		fresh := 0
		for _, p := range products {
			if seen[p.DedupKey()] {
				continue
			}
			all = append(all, p)
			seen[p.DedupKey()] = true
			fresh++
		}
		if fresh > 0 {
			emptyStreak = 0
			c.log.Info("page extracted",
				zap.String("category", cat.Name), zap.Int("page", page), zap.Int("new", fresh))
		} else {
			emptyStreak++
			c.log.Info("page yielded nothing new",
				zap.String("category", cat.Name), zap.Int("page", page))
		}

		if c.progress != nil {
			c.progress(page, len(all))
		}

		if emptyStreak >= maxEmptyStreak || page >= maxPagesPerCategory {
			break
		}
		if !c.paginator.HasNext(c.drv, cat.SiteID) {
			c.log.Info("no next page", zap.String("category", cat.Name), zap.Int("page", page))
			break
		}

		if c.paginator.Advance(c.drv, cat.SiteID) {
			time.Sleep(c.settle)
		} else {
			navErr = c.drv.Navigate(SynthesizeURL(cat.URL, page+1, cat.SiteID))
		}
		page++
	}

	c.log.Info("category crawl finished",
		zap.String("category", cat.Name),
		zap.Int("products", len(all)), zap.Int("pages", pagesCrawled))
	return CategoryResult{Products: all, Pages: pagesCrawled}
}
