// Package scraper implements the multi-site crawl traversal and extraction
// engine: site identification, category discovery, product extraction,
// pagination and run orchestration over a page driver session.
package scraper

import (
	"strconv"
	"unicode/utf8"
)

// Validity bounds for a finished record. Note that these are deliberately
// wider than the candidate bounds in ParsePrice: the extraction stage is the
// stricter of the two filters.
const (
	minValidPrice = 500
	maxValidPrice = 100_000_000
	minNameLen    = 2
)

// Product is one extracted listing record. Price is a canonical decimal
// string in the smallest currency unit. Field order mirrors the export
// columns.
type Product struct {
	Name            string `json:"name"`
	Price           string `json:"price"`
	Categories      string `json:"categories"`
	Site            string `json:"site"`
	SiteID          string `json:"site_id"`
	Type            string `json:"type"`
	Variation       string `json:"variation"`
	SKU             string `json:"sku"`
	Description     string `json:"description"`
	URL             string `json:"url"`
	GroupedProducts string `json:"grouped_products"`
	ScrapedAt       string `json:"scraped_at"`
}

// Valid reports whether a candidate record passes the final acceptance gate.
// Rejections here are expected noise, not errors.
func (p Product) Valid() bool {
	if utf8.RuneCountInString(p.Name) < minNameLen {
		return false
	}
	n, err := strconv.Atoi(p.Price)
	if err != nil || n <= 0 {
		return false
	}
	return n >= minValidPrice && n <= maxValidPrice
}

// DedupKey is the (name, price) identity used for page- and category-local
// deduplication.
func (p Product) DedupKey() string {
	return p.Name + "\x00" + p.Price
}

// SiteDedupKey is the (name, price, site) identity used for run-wide
// deduplication at export time.
func (p Product) SiteDedupKey() string {
	return p.Name + "\x00" + p.Price + "\x00" + p.Site
}
