package sites

import "strings"

// PageStyle describes how a site encodes the page number in listing URLs.
type PageStyle int

const (
	// PageStyleQuery appends ?page=N (or &page=N when a query string exists).
	PageStyleQuery PageStyle = iota
	// PageStylePath appends /page/N/.
	PageStylePath
	// PageStyleProductPath appends /product-page/N/.
	PageStyleProductPath
)

// Ruleset bundles the selectors, keywords and URL conventions tuned for one
// storefront. Rulesets are built once at start-up and never mutated.
type Ruleset struct {
	ID                  string
	Name                string
	BaseURLs            []string
	CategorySelectors   []string
	ProductSelectors    []string
	NameSelectors       []string
	PriceSelectors      []string
	PaginationSelectors []string
	NextText            []string
	CategoryKeywords    []string
	PageStyle           PageStyle
}

// DefaultSiteID is used when a URL matches no base URL and no content
// signature. Identification must always yield a usable ruleset.
const DefaultSiteID = "tajvape"

// Site represents one supported storefront as exposed by the catalog API.
type Site struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	ID   string `json:"id"`
}

// registry order matters: identification walks it front to back.
var registry = []Ruleset{
	{
		ID:       "dokhanmarket",
		Name:     "Dokhan Market",
		BaseURLs: []string{"https://dokhanmarket3.com", "http://dokhanmarket3.com"},
		CategorySelectors: []string{
			`a[href*="category"]`,
			".menu-link",
			"nav a",
			".product-category a",
		},
		ProductSelectors: []string{".product-card", ".product", ".product-item", ".goods-item"},
		NameSelectors:    []string{".product-card_link", ".product-title", "h3", "h2", ".product-name"},
		PriceSelectors:   []string{".product-card_price", ".price", ".woocommerce-Price-amount", ".amount", "bdi"},
		PaginationSelectors: []string{
			`a[href*="page="]`,
			".next",
			".pagination-next",
			"a.next",
		},
		NextText:         []string{"بعدی", "next", "→"},
		CategoryKeywords: []string{"category", "cat", "product-category", "shop"},
		PageStyle:        PageStyleProductPath,
	},
	{
		ID:       "tajvape",
		Name:     "Tajvape",
		BaseURLs: []string{"https://tajvape12.com", "http://tajvape12.com"},
		CategorySelectors: []string{
			".dropdown-toggle.menu-link",
			".menu-link",
			"nav a",
			".product-category a",
			`a[href*="product-category"]`,
		},
		ProductSelectors: []string{
			"ul.products li.product",
			".product-link",
			".mini-product-con",
			".product",
			".product-item",
			".woocommerce-product",
			"li.product",
		},
		NameSelectors:  []string{".product-title", "h2", "h3", ".woocommerce-loop-product__title"},
		PriceSelectors: []string{".woocommerce-Price-amount", ".price", ".amount", "bdi"},
		PaginationSelectors: []string{
			".next.page-numbers",
			".pagination a",
			"a.next",
			`a[href*="page/"]`,
		},
		NextText:         []string{"→", "next", "بعدی"},
		CategoryKeywords: []string{"product-category", "category", "e-juice", "vape"},
		PageStyle:        PageStylePath,
	},
	{
		ID:       "vapoursdaily",
		Name:     "Vapours Daily",
		BaseURLs: []string{"https://vapoursdaily14.com", "http://vapoursdaily14.com"},
		CategorySelectors: []string{
			".menu-item a",
			"nav a",
			".product-category a",
			`a[href*="category"]`,
		},
		ProductSelectors: []string{".product", ".product-item", ".woocommerce-product", ".goods-item"},
		NameSelectors:    []string{".product-tittle", "h3", "h2", ".product-name"},
		PriceSelectors:   []string{".woocommerce-Price-amount", ".price", ".amount", "bdi"},
		PaginationSelectors: []string{
			".next.page-numbers",
			".pagination a",
			"a.next",
		},
		NextText:         []string{"←", "next", "بعدی"},
		CategoryKeywords: []string{"product-category", "category", "vape"},
		PageStyle:        PageStylePath,
	},
	{
		ID:       "smokcenter",
		Name:     "Smok Center",
		BaseURLs: []string{"https://smokcenter16.com", "http://smokcenter16.com"},
		CategorySelectors: []string{
			"li.elementor-icon-list-item a",
			".elementor-icon-list-text",
			".e-n-tab-title-text",
			".e-n-tab-title",
			".wd-nav-products-cats a",
			"nav a",
			".category-item a",
			`a[href*="category"]`,
		},
		ProductSelectors: []string{".product", ".product-item", ".wd-entities-title", ".goods-item"},
		NameSelectors:    []string{".wd-entities-title", "h3", "h2", ".product-title"},
		PriceSelectors:   []string{".woocommerce-Price-amount", ".price", "ins .amount", ".amount", "bdi"},
		PaginationSelectors: []string{
			".load-more-label",
			".next",
			".pagination a",
			`a[href*="page"]`,
		},
		NextText:         []string{"بارگیری بیشتر محصولات", "next", "بعدی"},
		CategoryKeywords: []string{"shop", "category", "ejuice"},
		PageStyle:        PageStyleQuery,
	},
	{
		ID:       "digizima",
		Name:     "Digi Zima",
		BaseURLs: []string{"https://digizima19.com", "http://digizima19.com"},
		CategorySelectors: []string{
			".menu-item a",
			"nav a",
			".product-category a",
			`a[href*="category"]`,
		},
		ProductSelectors: []string{".product", ".product-item", ".wd-entities-title", ".goods-item"},
		NameSelectors:    []string{".wd-entities-title", "h3", "h2", ".product-name"},
		PriceSelectors:   []string{".woocommerce-Price-amount", ".price", ".amount", "bdi"},
		PaginationSelectors: []string{
			".next.page-numbers",
			".pagination a",
			"a.next",
		},
		NextText:         []string{"→", "next", "بعدی"},
		CategoryKeywords: []string{"product-category", "category", "vape"},
		PageStyle:        PageStylePath,
	},
	{
		ID:       "digighelioon",
		Name:     "Digi Ghelioon",
		BaseURLs: []string{"https://digighelioon.com", "http://digighelioon.com"},
		CategorySelectors: []string{
			"a.active",
			".menu-item a",
			"nav a",
			`a[href*="hookah-components"]`,
			`a[href*="category"]`,
		},
		ProductSelectors: []string{".product", ".product-item", ".product-card", ".goods-item"},
		NameSelectors:    []string{".product-name", "h3", "h2", ".product-title"},
		PriceSelectors:   []string{".woocommerce-Price-amount", ".price", ".amount", "bdi"},
		PaginationSelectors: []string{
			".next",
			".pagination a",
			`a[href*="page"]`,
		},
		NextText:         []string{"بعدی", "next", "→"},
		CategoryKeywords: []string{"product-category", "category", "hookah-components"},
		PageStyle:        PageStyleProductPath,
	},
	{
		ID:       "vape60",
		Name:     "Vape 60",
		BaseURLs: []string{"https://vape60shop22.com", "http://vape60shop22.com"},
		CategorySelectors: []string{
			".menu-item a",
			"nav a",
			".product-category a",
			`a[href*="category"]`,
		},
		ProductSelectors: []string{".product", ".product-item", ".woocommerce-product", ".goods-item"},
		NameSelectors:    []string{".woocommerce-loop-product__title", "h2", "h3", "b"},
		PriceSelectors:   []string{".woocommerce-Price-amount", ".price", ".amount", "bdi"},
		PaginationSelectors: []string{
			".next.page-numbers",
			".pagination a",
			"a.next",
		},
		NextText:         []string{"←", "next", "بعدی"},
		CategoryKeywords: []string{"product-category", "category", "podsystem"},
		PageStyle:        PageStyleQuery,
	},
}

// Get returns the ruleset for a site id. Unknown ids fall back to the
// default ruleset so that a crawl always has a usable configuration.
func Get(id string) Ruleset {
	for _, rs := range registry {
		if rs.ID == id {
			return rs
		}
	}
	return Get(DefaultSiteID)
}

// All returns every registered ruleset in registry order.
func All() []Ruleset {
	out := make([]Ruleset, len(registry))
	copy(out, registry)
	return out
}

// MatchBaseURL resolves a URL to a site id by substring match against the
// known base URLs, in registry order. First match wins.
func MatchBaseURL(url string) (string, bool) {
	for _, rs := range registry {
		for _, base := range rs.BaseURLs {
			if strings.Contains(url, base) {
				return rs.ID, true
			}
		}
	}
	return "", false
}

// TargetURLs lists the seed URLs for a full run, in canonical order.
func TargetURLs() []string {
	return []string{
		"https://vape60shop22.com",
		"https://tajvape12.com",
		"https://vapoursdaily14.com",
		"https://digizima19.com",
		"https://smokcenter16.com",
		"https://digighelioon.com",
		"https://dokhanmarket3.com",
	}
}

// Catalog returns the supported-site list exposed to API callers.
func Catalog() []Site {
	return []Site{
		{Name: "Vape 60", URL: "https://vape60shop22.com", ID: "vape60"},
		{Name: "Tajvape", URL: "https://tajvape12.com", ID: "tajvape"},
		{Name: "Vapours Daily", URL: "https://vapoursdaily14.com", ID: "vapoursdaily"},
		{Name: "Digi Zima", URL: "https://digizima19.com", ID: "digizima"},
		{Name: "Smok Center", URL: "https://smokcenter16.com", ID: "smokcenter"},
		{Name: "Digi Ghelioon", URL: "https://digighelioon.com", ID: "digighelioon"},
		{Name: "Dokhan Market", URL: "https://dokhanmarket3.com", ID: "dokhanmarket"},
	}
}
