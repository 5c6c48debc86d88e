package scraper

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/driver"
	"github.com/shoplens/shop-crawler/internal/sites"
)

const (
	fallbackScanLimit  = 50
	ancestorWalkDepth  = 4
	minAncestorTextLen = 30
	minFallbackName    = 5
	minProductTextLen  = 50
)

// Currency and purchase vocabulary used to locate price-bearing elements
// when no structured selector matched anything.
var priceIndicators = []string{"تومان", "ریال", "price", "قیمت", "خرید"}

// A block must carry at least one mandatory currency token; product
// vocabulary (or sheer length) then confirms it.
var productMustHave = []string{"تومان", "ریال", "price"}
var productNiceToHave = []string{
	"قیمت", "خرید", "جویس", "پاد", "ویپ", "کویل", "سیستم", "محصول", "product", "vape",
}

// ExtractFallback is the text-scan extraction path, used only when the
// primary path yields nothing across all product selectors: find elements
// mentioning a price indicator, walk up to an approximate product block,
// and rebuild a record from its raw text.
func (e *Extractor) ExtractFallback(d driver.Driver, categoryName, siteID string) []Product {
	rs := sites.Get(siteID)

	var products []Product
	seen := make(map[string]bool)
	for _, indicator := range priceIndicators {
		elements := d.FindAllByTextContains(indicator)
		if len(elements) > fallbackScanLimit {
			elements = elements[:fallbackScanLimit]
		}
		for _, el := range elements {
			block := walkToAncestor(el, ancestorWalkDepth)
			if block == nil {
				continue
			}
			text := strings.TrimSpace(block.Text())
			if utf8.RuneCountInString(text) <= minAncestorTextLen || !looksLikeProduct(text) {
				continue
			}
			product, ok := e.productFromText(text, categoryName, rs)
			if !ok || !product.Valid() || seen[product.SiteDedupKey()] {
				continue
			}
			products = append(products, product)
			seen[product.SiteDedupKey()] = true
		}
	}

	if len(products) > 0 {
		e.log.Info("fallback extraction recovered products",
			zap.String("site", siteID), zap.Int("count", len(products)))
	}
	return products
}

// walkToAncestor climbs at most depth parents to approximate the containing
// product block. Returns nil when the element has no parent at all.
func walkToAncestor(el driver.Element, depth int) driver.Element {
	current := el
	for i := 0; i < depth; i++ {
		parent := current.Parent()
		if parent == nil {
			break
		}
		current = parent
	}
	if current == el {
		return nil
	}
	return current
}

// productFromText rebuilds a record from a block's raw text: the name is the
// first line longer than 5 runes that is not itself a price/label line, the
// price comes from the shared parser.
func (e *Extractor) productFromText(text, categoryName string, rs sites.Ruleset) (Product, bool) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); utf8.RuneCountInString(line) > 2 {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return Product{}, false
	}

	name := lines[0]
	for _, line := range lines {
		if utf8.RuneCountInString(line) > minFallbackName && !containsAny(strings.ToLower(line), priceIndicators) {
			name = line
			break
		}
	}

	price, ok := ParsePrice(text)
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
		Description: truncateRunes(text, maxDescLen),
		ScrapedAt:   e.now().Format(scrapedAtLayout),
	}, true
}

// looksLikeProduct gates fallback blocks: a mandatory currency token, then
// either product vocabulary or enough text to plausibly be a listing.
func looksLikeProduct(text string) bool {
	lower := strings.ToLower(text)
	if !containsAny(lower, productMustHave) {
		return false
	}
	if containsAny(lower, productNiceToHave) {
		return true
	}
	return utf8.RuneCountInString(text) > minProductTextLen
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}
