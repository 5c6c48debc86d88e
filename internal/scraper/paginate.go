package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/driver"
	"github.com/shoplens/shop-crawler/internal/sites"
)

// Keyword vocabularies for recognizing pagination controls. A control must
// carry a next keyword and no previous keyword.
var (
	nextKeywords = []string{"next", "بعدی", "→", "»", ">", "load more", "more"}
	prevKeywords = []string{"قبلی", "قبل", "←", "«", "<", "previous"}

	loadMoreWords = []string{"more", "load", "بارگیری", "بیشتر"}
)

// Selector cascades for the four detection strategies.
var (
	nextControlSelectors = []string{
		"a.next", ".next", ".pagination-next",
		".page-numbers.next", ".next.page-numbers",
		`a[rel="next"]`, ".next-page", ".pagination .next",
		".woocommerce-pagination .next", ".nav-next",
		"button.next", ".load-more", ".pagination-next a",
	}

	paginationLinkSelector = `a[href*="page"], a[href*="paged"], [class*="page"], [class*="pagination"] a, .page-numbers a, .pagination a, .page-links a`

	nextPhrases = []string{"بعدی", "next", "→", "»", ">", "Load more", "More products"}

	loadMoreScanSelector = `button, [onclick], [class*="load"], [class*="more"]`
)

// Click cascades mirror the detection cascades but are slightly narrower:
// only controls that are safe to blindly click.
var (
	clickNextSelectors = []string{
		"a.next", ".next", ".pagination-next",
		".page-numbers.next", ".next.page-numbers",
		`a[rel="next"]`, ".next-page", ".pagination .next",
		".woocommerce-pagination .next", ".nav-next",
	}

	clickPageLinkSelector = `.page-numbers a, .pagination a, a.page-numbers, .page-links a`

	clickNextPhrases     = []string{"بعدی", "next", "→", "»", ">"}
	clickPrevGuards      = []string{"قبلی", "قبل", "←", "«"}
	clickLoadMoreTargets = []string{
		"button.load-more", ".load-more", `[class*="load-more"]`,
		".load-more-products", ".ajax-load-more",
	}
)

// URL patterns carrying the current page number, in match priority order.
var pageNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/page/(\d+)/`),
	regexp.MustCompile(`[?&]page=(\d+)`),
	regexp.MustCompile(`/product-page/(\d+)/`),
	regexp.MustCompile(`[?&]paged=(\d+)`),
	regexp.MustCompile(`/page-(\d+)/`),
	regexp.MustCompile(`/page(\d+)/`),
}

// Suffixes stripped before synthesizing a pagination URL.
var stripPagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&](?:page|paged)=\d+`),
	regexp.MustCompile(`/page/\d+/?`),
	regexp.MustCompile(`/product-page/\d+/?`),
}

// Paginator decides whether a listing has a next page and advances to it,
// by clicking a discovered control or synthesizing the next page's URL.
type Paginator struct {
	log *zap.Logger
}

// NewPaginator returns a paginator logging through the given logger.
func NewPaginator(log *zap.Logger) *Paginator {
	return &Paginator{log: log}
}

// tryStrategies runs ordered fallback strategies until one succeeds. Shared
// by detection and advancing so the cascade logic lives in one place.
func tryStrategies(strategies ...func() bool) bool {
	for _, strategy := range strategies {
		if strategy() {
			return true
		}
	}
	return false
}

// HasNext checks the four detection strategies in order, stopping at the
// first positive signal: next-control selectors, numbered pagination links,
// whole-page next-phrase search, and load-more controls. The site's tuned
// pagination selectors and next-link wording take precedence over the
// generic cascades.
func (p *Paginator) HasNext(d driver.Driver, siteID string) bool {
	rs := sites.Get(siteID)
	return tryStrategies(
		func() bool { return p.hasNextControl(d, rs) },
		func() bool { return p.hasNumberedLink(d) },
		func() bool { return p.hasNextPhrase(d, rs) },
		func() bool { return p.hasLoadMore(d) },
	)
}

func (p *Paginator) hasNextControl(d driver.Driver, rs sites.Ruleset) bool {
	keywords := append(append([]string{}, rs.NextText...), nextKeywords...)
	for _, selector := range append(append([]string{}, rs.PaginationSelectors...), nextControlSelectors...) {
		for _, el := range d.FindAll(selector) {
			if !el.Visible() || !el.Enabled() {
				continue
			}
			text := strings.ToLower(strings.TrimSpace(el.Text()))
			if containsAny(text, keywords) && !containsAny(text, prevKeywords) {
				p.log.Debug("next page via control selector", zap.String("selector", selector))
				return true
			}
		}
	}
	return false
}

// hasNumberedLink scans pagination-area links for either the number of the
// page after the current one or next-page wording.
func (p *Paginator) hasNumberedLink(d driver.Driver) bool {
	currentPage := CurrentPageNumber(d.CurrentURL())
	for _, link := range d.FindAll(paginationLinkSelector) {
		if !link.Visible() {
			continue
		}
		text := strings.TrimSpace(link.Text())
		if link.Attribute("href") == "" {
			continue
		}
		if n, err := strconv.Atoi(text); err == nil && n == currentPage+1 {
			p.log.Debug("next page via numbered link", zap.Int("page", n))
			return true
		}
		lower := strings.ToLower(text)
		if containsAny(lower, []string{"next", "بعدی", "→", "»", ">"}) &&
			!containsAny(lower, []string{"قبلی", "قبل", "←"}) {
			p.log.Debug("next page via link text", zap.String("text", text))
			return true
		}
	}
	return false
}

// hasNextPhrase is the whole-page text search; a hit only counts when its
// immediate container is a link or has a click handler.
func (p *Paginator) hasNextPhrase(d driver.Driver, rs sites.Ruleset) bool {
	for _, phrase := range append(append([]string{}, rs.NextText...), nextPhrases...) {
		for _, el := range d.FindAllByTextContains(phrase) {
			if !el.Visible() || !el.Enabled() {
				continue
			}
			parent := el.Parent()
			if parent == nil {
				continue
			}
			if parent.TagName() == "a" || parent.Attribute("onclick") != "" {
				p.log.Debug("next page via text phrase", zap.String("phrase", phrase))
				return true
			}
		}
	}
	return false
}

func (p *Paginator) hasLoadMore(d driver.Driver) bool {
	for _, el := range d.FindAll(loadMoreScanSelector) {
		if !el.Visible() || !el.Enabled() {
			continue
		}
		if containsAny(strings.ToLower(el.Text()), loadMoreWords) {
			p.log.Debug("next page via load-more control")
			return true
		}
	}
	return false
}

// Advance mirrors the detection strategies to find a clickable control and
// performs a scripted click. Returns false when nothing could be clicked;
// the caller then falls back to direct URL synthesis.
func (p *Paginator) Advance(d driver.Driver, siteID string) bool {
	rs := sites.Get(siteID)
	if tryStrategies(
		func() bool { return p.clickNextControl(d, rs) },
		func() bool { return p.clickNumberedLink(d) },
		func() bool { return p.clickNextPhrase(d, rs) },
		func() bool { return p.clickLoadMore(d) },
	) {
		return true
	}
	p.log.Debug("no clickable pagination control found")
	return false
}

func (p *Paginator) clickNextControl(d driver.Driver, rs sites.Ruleset) bool {
	for _, selector := range append(append([]string{}, rs.PaginationSelectors...), clickNextSelectors...) {
		for _, el := range d.FindAll(selector) {
			if !el.Visible() || !el.Enabled() {
				continue
			}
			if el.Click() == nil {
				p.log.Debug("advanced via next control", zap.String("selector", selector))
				return true
			}
		}
	}
	return false
}

func (p *Paginator) clickNumberedLink(d driver.Driver) bool {
	currentPage := CurrentPageNumber(d.CurrentURL())
	for _, link := range d.FindAll(clickPageLinkSelector) {
		if !link.Visible() || !link.Enabled() {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(link.Text())); err == nil && n == currentPage+1 {
			if link.Click() == nil {
				p.log.Debug("advanced via numbered link", zap.Int("page", n))
				return true
			}
		}
	}
	return false
}

func (p *Paginator) clickNextPhrase(d driver.Driver, rs sites.Ruleset) bool {
	for _, phrase := range append(append([]string{}, rs.NextText...), clickNextPhrases...) {
		for _, el := range d.FindAllByTextContains(phrase) {
			if !el.Visible() || !el.Enabled() {
				continue
			}
			if containsAny(strings.ToLower(el.Text()), clickPrevGuards) {
				continue
			}
			if el.Click() == nil {
				p.log.Debug("advanced via text phrase", zap.String("phrase", phrase))
				return true
			}
		}
	}
	return false
}

func (p *Paginator) clickLoadMore(d driver.Driver) bool {
	for _, selector := range clickLoadMoreTargets {
		for _, el := range d.FindAll(selector) {
			if !el.Visible() || !el.Enabled() {
				continue
			}
			if el.Click() == nil {
				p.log.Debug("advanced via load-more control", zap.String("selector", selector))
				return true
			}
		}
	}
	return false
}

// CurrentPageNumber extracts the page number from a listing URL via the
// known URL patterns, first match wins. URLs without one are page 1.
func CurrentPageNumber(url string) int {
	for _, pattern := range pageNumberPatterns {
		if m := pattern.FindStringSubmatch(url); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 1
}

// SynthesizeURL builds the URL for a given page of a listing. Existing
// pagination suffixes are stripped first; the appended form follows the
// site's registered URL style, defaulting to the query-parameter form.
func SynthesizeURL(baseURL string, pageNumber int, siteID string) string {
	if pageNumber == 1 {
		return baseURL
	}

	clean := baseURL
	for _, pattern := range stripPagePatterns {
		clean = pattern.ReplaceAllString(clean, "")
	}
	clean = strings.TrimSuffix(clean, "/")

	switch sites.Get(siteID).PageStyle {
	case sites.PageStylePath:
		return fmt.Sprintf("%s/page/%d/", clean, pageNumber)
	case sites.PageStyleProductPath:
		return fmt.Sprintf("%s/product-page/%d/", clean, pageNumber)
	default:
		separator := "?"
		if strings.Contains(clean, "?") {
			separator = "&"
		}
		return fmt.Sprintf("%s%spage=%d", clean, separator, pageNumber)
	}
}
