package scraper

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/driver"
	"github.com/shoplens/shop-crawler/internal/sites"
)

const (
	minBlockTextLen = 10
	maxNameLen      = 200
	maxDescLen      = 300

	// placeholderName labels a record whose name could not be resolved at
	// all ("unknown product").
	placeholderName = "محصول ناشناخته"

	scrapedAtLayout = "2006-01-02 15:04:05"
)

// Name selectors that are bare HTML tags get the tag-self / tag-descendant
// treatment instead of a CSS descendant query.
var bareTagSelectors = map[string]bool{
	"h2": true, "h3": true, "h4": true, "b": true, "strong": true,
}

// SKU label patterns, tried in order: Latin "SKU:", Persian "code:"/"id:",
// a bare alphanumeric code, Persian "product code:". Absence is not an error.
var skuPatterns = []*regexp.Regexp{
	regexp.MustCompile(`SKU:\s*([A-Za-z0-9-]+)`),
	regexp.MustCompile(`کد:\s*([A-Za-z0-9-]+)`),
	regexp.MustCompile(`شناسه:\s*([A-Za-z0-9-]+)`),
	regexp.MustCompile(`([A-Z]{2,3}\d{3,})`),
	regexp.MustCompile(`کد محصول:\s*(\S+)`),
}

// Extractor turns a rendered listing page into product records.
type Extractor struct {
	log *zap.Logger
	now func() time.Time
}

// NewExtractor returns an extractor logging through the given logger.
func NewExtractor(log *zap.Logger) *Extractor {
	return &Extractor{log: log, now: time.Now}
}

// ExtractPage runs the primary extraction path: product-block selectors are
// tried in priority order (not unioned) and the first selector producing at
// least one valid record wins. Records are deduplicated by (name, price)
// within the page.
func (e *Extractor) ExtractPage(d driver.Driver, categoryName, siteID string) []Product {
	rs := sites.Get(siteID)

	var products []Product
	seen := make(map[string]bool)
	for _, selector := range rs.ProductSelectors {
		elements := d.FindAll(selector)
		if len(elements) == 0 {
			continue
		}
		e.log.Debug("product selector matched",
			zap.String("selector", selector), zap.Int("elements", len(elements)))

		for _, el := range elements {
			product, ok := e.extract(el, categoryName, rs)
			if !ok || !product.Valid() {
				continue
			}
			if seen[product.DedupKey()] {
				continue
			}
			products = append(products, product)
			seen[product.DedupKey()] = true
		}
		if len(products) > 0 {
			break
		}
	}
	return products
}

// extract builds one candidate record from a product block. A block whose
// full text is too short, or whose price cannot be resolved, yields nothing.
func (e *Extractor) extract(el driver.Element, categoryName string, rs sites.Ruleset) (Product, bool) {
	fullText := strings.TrimSpace(el.Text())
	if utf8.RuneCountInString(fullText) < minBlockTextLen {
		return Product{}, false
	}

	name := extractName(el, rs)
	if utf8.RuneCountInString(name) < minNameLen {
		name = firstNonEmptyLine(fullText)
		if name == "" {
			name = placeholderName
		}
	}

	price, ok := extractPrice(el, rs)
	if !ok {
		price, ok = ParsePrice(fullText)
	}
	if !ok {
		return Product{}, false
	}

	return Product{
		Name:        truncateRunes(name, maxNameLen),
		Price:       price,
		Categories:  categoryName,
		Site:        rs.Name,
		SiteID:      rs.ID,
		Type:        "product",
		Variation:   "standard",
		SKU:         extractSKU(fullText),
		Description: truncateRunes(fullText, maxDescLen),
		URL:         extractURL(el),
		ScrapedAt:   e.now().Format(scrapedAtLayout),
	}, true
}

// extractName tries the ruleset's name selectors in order. Bare tag
// selectors match the block itself when its tag agrees, then its
// descendants; everything else is a CSS descendant query.
func extractName(el driver.Element, rs sites.Ruleset) string {
	for _, selector := range rs.NameSelectors {
		if bareTagSelectors[selector] {
			if el.TagName() == selector {
				if name := strings.TrimSpace(el.Text()); utf8.RuneCountInString(name) > 1 {
					return name
				}
			}
			for _, child := range el.FindDescendantsByTag(selector) {
				if name := strings.TrimSpace(child.Text()); utf8.RuneCountInString(name) > 1 {
					return name
				}
			}
			continue
		}
		for _, child := range el.FindDescendants(selector) {
			if name := strings.TrimSpace(child.Text()); utf8.RuneCountInString(name) > 1 {
				return name
			}
		}
	}
	return ""
}

func extractPrice(el driver.Element, rs sites.Ruleset) (string, bool) {
	for _, selector := range rs.PriceSelectors {
		for _, child := range el.FindDescendants(selector) {
			if price, ok := ParsePrice(child.Text()); ok {
				return price, true
			}
		}
	}
	return "", false
}

// extractURL prefers the block itself when it is an absolute link, then the
// first absolute link among its descendants.
func extractURL(el driver.Element) string {
	if el.TagName() == "a" {
		if href := el.Attribute("href"); strings.Contains(href, "http") {
			return href
		}
	}
	for _, link := range el.FindDescendantsByTag("a") {
		if href := link.Attribute("href"); strings.Contains(href, "http") {
			return href
		}
	}
	return ""
}

func extractSKU(text string) string {
	for _, pattern := range skuPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
