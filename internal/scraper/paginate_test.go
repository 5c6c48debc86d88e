package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/driver/drivertest"
)

func TestCurrentPageNumber(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{"https://x.com/shop/page/3/", 3},
		{"https://x.com/shop?page=5", 5},
		{"https://x.com/shop?sort=new&page=7", 7},
		{"https://x.com/category/product-page/2/", 2},
		{"https://x.com/shop?paged=4", 4},
		{"https://x.com/shop/page-6/", 6},
		{"https://x.com/shop/page9/", 9},
		{"https://x.com/shop/", 1},
		{"", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CurrentPageNumber(tt.url), tt.url)
	}
}

func TestSynthesizeURL(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		page   int
		siteID string
		want   string
	}{
		{"page one unchanged", "https://tajvape12.com/shop/", 1, "tajvape", "https://tajvape12.com/shop/"},
		{"path style", "https://tajvape12.com/shop/", 2, "tajvape", "https://tajvape12.com/shop/page/2/"},
		{"path style strips old page", "https://tajvape12.com/shop/page/3/", 4, "tajvape", "https://tajvape12.com/shop/page/4/"},
		{"product path style", "https://dokhanmarket3.com/category/juice", 2, "dokhanmarket", "https://dokhanmarket3.com/category/juice/product-page/2/"},
		{"query style", "https://vape60shop22.com/shop", 3, "vape60", "https://vape60shop22.com/shop?page=3"},
		{"query style appends ampersand", "https://vape60shop22.com/shop?sort=new", 3, "vape60", "https://vape60shop22.com/shop?sort=new&page=3"},
		{"query style strips old page", "https://vape60shop22.com/shop?page=2", 3, "vape60", "https://vape60shop22.com/shop?page=3"},
		{"unknown site uses default ruleset style", "https://mirror.example.com/shop", 2, "nope", "https://mirror.example.com/shop/page/2/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SynthesizeURL(tt.base, tt.page, tt.siteID))
		})
	}
}

func TestHasNextViaControlSelector(t *testing.T) {
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	page.Add("a.next", &drivertest.Element{TextVal: "بعدی", Tag: "a"})
	require.NoError(t, d.Navigate(dokhanRoot))

	assert.True(t, NewPaginator(zap.NewNop()).HasNext(d, "dokhanmarket"))
}

func TestHasNextIgnoresPreviousControls(t *testing.T) {
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	page.Add("a.next", &drivertest.Element{TextVal: "« قبلی", Tag: "a"})
	require.NoError(t, d.Navigate(dokhanRoot))

	assert.False(t, NewPaginator(zap.NewNop()).HasNext(d, "dokhanmarket"))
}

func TestHasNextIgnoresHiddenControls(t *testing.T) {
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	page.Add("a.next", &drivertest.Element{TextVal: "بعدی", Tag: "a", Hidden: true})
	require.NoError(t, d.Navigate(dokhanRoot))

	assert.False(t, NewPaginator(zap.NewNop()).HasNext(d, "dokhanmarket"))
}

func TestHasNextViaTextPhrase(t *testing.T) {
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	label := &drivertest.Element{
		TextVal:  "صفحه بعدی",
		Tag:      "span",
		ParentEl: &drivertest.Element{Tag: "a"},
	}
	page.Add("span", label)
	require.NoError(t, d.Navigate(dokhanRoot))

	assert.True(t, NewPaginator(zap.NewNop()).HasNext(d, "dokhanmarket"))
}

func TestHasNextTextPhraseNeedsClickableContainer(t *testing.T) {
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	label := &drivertest.Element{
		TextVal:  "صفحه بعدی",
		Tag:      "span",
		ParentEl: &drivertest.Element{Tag: "div"},
	}
	page.Add("span", label)
	require.NoError(t, d.Navigate(dokhanRoot))

	assert.False(t, NewPaginator(zap.NewNop()).HasNext(d, "dokhanmarket"))
}

func TestHasNextOnEmptyPage(t *testing.T) {
	d := drivertest.NewFake()
	d.AddPage(dokhanRoot)
	require.NoError(t, d.Navigate(dokhanRoot))

	assert.False(t, NewPaginator(zap.NewNop()).HasNext(d, "dokhanmarket"))
}

func TestAdvanceClicksNextControl(t *testing.T) {
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	next := &drivertest.Element{TextVal: "بعدی", Tag: "a"}
	page.Add("a.next", next)
	require.NoError(t, d.Navigate(dokhanRoot))

	assert.True(t, NewPaginator(zap.NewNop()).Advance(d, "dokhanmarket"))
	assert.Equal(t, 1, next.Clicks)
}

func TestAdvanceFailsWhenNothingClickable(t *testing.T) {
	d := drivertest.NewFake()
	d.AddPage(dokhanRoot)
	require.NoError(t, d.Navigate(dokhanRoot))

	assert.False(t, NewPaginator(zap.NewNop()).Advance(d, "dokhanmarket"))
}
