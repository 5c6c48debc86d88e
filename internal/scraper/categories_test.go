package scraper

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/driver"
	"github.com/shoplens/shop-crawler/internal/driver/drivertest"
	"github.com/shoplens/shop-crawler/internal/sites"
)

const dokhanRoot = "https://dokhanmarket3.com"

func TestDiscoverCategoriesFiltersNavigationChrome(t *testing.T) {
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	page.Add(`a[href*="category"]`,
		drivertest.Link("جویس و سالت", dokhanRoot+"/category/juice"),
		drivertest.Link("پاد سیستم", dokhanRoot+"/category/pods"),
		drivertest.Link("تماس با ما", dokhanRoot+"/contact-category"),
		drivertest.Link("سبد خرید", dokhanRoot+"/category/cart"),
	)

	cats := DiscoverCategories(d, dokhanRoot, "dokhanmarket", zap.NewNop())

	require.Len(t, cats, 2)
	assert.Equal(t, "جویس و سالت", cats[0].Name)
	assert.Equal(t, dokhanRoot+"/category/juice", cats[0].URL)
	assert.Equal(t, "dokhanmarket", cats[0].SiteID)
	assert.Equal(t, "پاد سیستم", cats[1].Name)
}

func TestDiscoverCategoriesDedupsByURLAndName(t *testing.T) {
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	page.Add(`a[href*="category"]`,
		drivertest.Link("جویس", dokhanRoot+"/category/juice"),
		drivertest.Link("جویس", dokhanRoot+"/category/juice"),
		drivertest.Link("جویس", dokhanRoot+"/category/juice-2"),
	)

	cats := DiscoverCategories(d, dokhanRoot, "dokhanmarket", zap.NewNop())

	require.Len(t, cats, 1)
	assert.Equal(t, dokhanRoot+"/category/juice", cats[0].URL)
}

func TestDiscoverCategoriesCap(t *testing.T) {
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	var links []driver.Element
	for i := 0; i < 15; i++ {
		links = append(links, drivertest.Link(
			fmt.Sprintf("دسته شماره %d", i),
			fmt.Sprintf("%s/category/cat-%d", dokhanRoot, i),
		))
	}
	page.Add(`a[href*="category"]`, links...)

	cats := DiscoverCategories(d, dokhanRoot, "dokhanmarket", zap.NewNop())

	assert.Len(t, cats, maxCategories)
}

func TestDiscoverCategoriesMenuScanFallback(t *testing.T) {
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	menu := &drivertest.Element{
		Tag: "nav",
		Kids: map[string][]driver.Element{
			"a": {
				drivertest.Link("ویپ و پاد", dokhanRoot+"/shop/vape"),
				drivertest.Link("ورود", dokhanRoot+"/login"),
			},
		},
	}
	page.Add("nav", menu)

	cats := DiscoverCategories(d, dokhanRoot, "dokhanmarket", zap.NewNop())

	require.Len(t, cats, 1)
	assert.Equal(t, "ویپ و پاد", cats[0].Name)
}

func TestDiscoverCategoriesSyntheticFallback(t *testing.T) {
	d := drivertest.NewFake()
	d.AddPage(dokhanRoot)

	cats := DiscoverCategories(d, dokhanRoot, "dokhanmarket", zap.NewNop())

	require.Len(t, cats, 1)
	assert.Equal(t, fallbackCategoryName, cats[0].Name)
	assert.Equal(t, dokhanRoot, cats[0].URL)
}

func TestDiscoverCategoriesNavigationFailure(t *testing.T) {
	d := drivertest.NewFake()

	cats := DiscoverCategories(d, dokhanRoot, "dokhanmarket", zap.NewNop())

	require.Len(t, cats, 1)
	assert.Equal(t, fallbackCategoryName, cats[0].Name)
}

func TestIsValidCategory(t *testing.T) {
	rs := sites.Get("dokhanmarket")
	tests := []struct {
		name string
		href string
		text string
		want bool
	}{
		{"ruleset keyword", "/product-category/juice", "جویس", true},
		{"generic indicator", "/shop/pods", "پاد سیستم", true},
		{"excluded text", "/category/x", "صفحه اصلی", false},
		{"excluded href", "/cart/items", "محصولات ویژه", false},
		{"length heuristic accepts", "/collections/x", "کویل و سیم", true},
		{"length heuristic rejects short", "/collections/x", "اب", false},
		{"empty href", "", "جویس", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isValidCategory(tt.href, tt.text, rs))
		})
	}
}
