package scraper

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/driver"
	"github.com/shoplens/shop-crawler/internal/sites"
)

// Category is one discovered listing target. Consumed within a single crawl
// pass and never persisted.
type Category struct {
	Name     string
	URL      string
	SiteID   string
	SiteName string
}

const (
	maxCategories       = 12
	categoryEarlyStop   = 10
	categoryScanMinimum = 3

	// fallbackCategoryName labels the synthetic target pointing at the site
	// root when discovery finds nothing ("main products").
	fallbackCategoryName = "محصولات اصلی"
)

// Navigation chrome that disqualifies a link as a category, in English and
// Persian. A hit in either the text or the href rejects the link outright.
var categoryExcludeWords = []string{
	"home", "main", "صفحه اصلی", "contact", "تماس", "about", "درباره",
	"blog", "بلاگ", "account", "حساب", "cart", "سبد", "checkout", "پرداخت",
	"search", "جستجو", "login", "ورود", "register", "ثبت نام", "اسموک سنتر tv",
}

// Generic href tokens accepted when no ruleset keyword matched.
var categoryIndicators = []string{"category", "cat", "product", "shop", "محصول", "دسته"}

// Containers scanned by the generic menu fallback.
var menuSelectors = []string{"nav", ".menu", ".navigation", ".main-menu", ".categories"}

// DiscoverCategories renders the site URL and produces at most 12 category
// targets using the ruleset's ordered category selectors, a generic menu
// scan when those yield fewer than 3, and a synthetic fallback target when
// everything comes up empty.
func DiscoverCategories(d driver.Driver, siteURL, siteID string, log *zap.Logger) []Category {
	rs := sites.Get(siteID)

	fallback := []Category{{Name: fallbackCategoryName, URL: siteURL, SiteID: siteID, SiteName: rs.Name}}
	if err := d.Navigate(siteURL); err != nil {
		log.Warn("failed to load site for category discovery",
			zap.String("url", siteURL), zap.Error(err))
		return fallback
	}

	var categories []Category
	seenURLs := make(map[string]bool)

	for _, selector := range rs.CategorySelectors {
		elements := d.FindAll(selector)
		if len(elements) > 0 {
			log.Debug("category selector matched",
				zap.String("selector", selector), zap.Int("elements", len(elements)))
		}
		for _, el := range elements {
			href := el.Attribute("href")
			text := strings.TrimSpace(el.Text())
			n := utf8.RuneCountInString(text)
			if href == "" || seenURLs[href] || text == "" || n <= 2 || n >= 100 {
				continue
			}
			if !isValidCategory(href, text, rs) {
				continue
			}
			categories = append(categories, Category{Name: text, URL: href, SiteID: siteID, SiteName: rs.Name})
			seenURLs[href] = true
		}
		if len(categories) >= categoryEarlyStop {
			break
		}
	}

	if len(categories) < categoryScanMinimum {
		categories = append(categories, scanMenus(d, siteID, rs)...)
	}

	// Dedup by display text, first occurrence wins.
	var unique []Category
	seenNames := make(map[string]bool)
	for _, cat := range categories {
		if seenNames[cat.Name] {
			continue
		}
		unique = append(unique, cat)
		seenNames[cat.Name] = true
	}

	if len(unique) == 0 {
		unique = fallback
	}
	if len(unique) > maxCategories {
		unique = unique[:maxCategories]
	}

	log.Info("categories discovered", zap.String("site", siteID), zap.Int("count", len(unique)))
	return unique
}

// scanMenus is the generic fallback: walk common navigation containers and
// accept any anchor passing the category filter.
func scanMenus(d driver.Driver, siteID string, rs sites.Ruleset) []Category {
	var categories []Category
	for _, selector := range menuSelectors {
		for _, menu := range d.FindAll(selector) {
			for _, link := range menu.FindDescendantsByTag("a") {
				href := link.Attribute("href")
				text := strings.TrimSpace(link.Text())
				if href == "" || text == "" || utf8.RuneCountInString(text) <= 2 {
					continue
				}
				if isValidCategory(href, text, rs) {
					categories = append(categories, Category{Name: text, URL: href, SiteID: siteID, SiteName: rs.Name})
				}
			}
		}
	}
	return categories
}

// isValidCategory applies the category filter cascade: the exclusion
// vocabulary is authoritative and rejects regardless of anything else;
// a ruleset keyword in the href is authoritative and accepts; a generic
// category indicator accepts as a second line; bare text-length bounds
// (exclusive) are the last-resort heuristic.
func isValidCategory(href, text string, rs sites.Ruleset) bool {
	if href == "" || text == "" {
		return false
	}

	textLower := strings.ToLower(text)
	hrefLower := strings.ToLower(href)

	for _, word := range categoryExcludeWords {
		if strings.Contains(textLower, word) || strings.Contains(hrefLower, word) {
			return false
		}
	}

	for _, keyword := range rs.CategoryKeywords {
		if strings.Contains(hrefLower, keyword) {
			return true
		}
	}

	for _, indicator := range categoryIndicators {
		if strings.Contains(hrefLower, indicator) {
			return true
		}
	}

	n := utf8.RuneCountInString(text)
	return n > 2 && n < 50
}
