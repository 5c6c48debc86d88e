package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/driver"
	"github.com/shoplens/shop-crawler/internal/sites"
)

// contentSignature pairs a site id with the tokens that distinguish its
// rendered pages: one matched against the lowercased title, one against the
// raw markup. Checked in fixed priority order.
type contentSignature struct {
	siteID      string
	titleToken  string
	markupToken string
}

var contentSignatures = []contentSignature{
	{"dokhanmarket", "dokhan", "دخان"},
	{"tajvape", "tajvape", "tajvape"},
	{"vapoursdaily", "vapoursdaily", "vapours"},
	{"smokcenter", "smokcenter", "smok"},
	{"digizima", "digizima", "زیما"},
	{"digighelioon", "digighelioon", "قلیون"},
	{"vape60", "vape60", "vape60"},
}

// Identify resolves an entry URL to a site id. It tries a base-URL match
// first (no navigation), then renders the page and matches content
// signatures, and finally falls back to the default site. It never fails:
// identification must always yield a usable ruleset.
func Identify(d driver.Driver, url string, log *zap.Logger) string {
	if id, ok := sites.MatchBaseURL(url); ok {
		log.Info("site identified by base URL", zap.String("site", id), zap.String("url", url))
		return id
	}

	if err := d.Navigate(url); err != nil {
		log.Warn("failed to render page for identification",
			zap.String("url", url), zap.Error(err))
		return sites.DefaultSiteID
	}

	title := strings.ToLower(d.Title())
	source := d.HTML()
	if title == "" && source != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(source)); err == nil {
			title = strings.ToLower(strings.TrimSpace(doc.Find("title").Text()))
		}
	}

	for _, sig := range contentSignatures {
		if strings.Contains(title, sig.titleToken) || strings.Contains(source, sig.markupToken) {
			log.Info("site identified by content signature", zap.String("site", sig.siteID))
			return sig.siteID
		}
	}

	log.Warn("unknown site, falling back to default ruleset", zap.String("url", url))
	return sites.DefaultSiteID
}
