package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shoplens/shop-crawler/internal/driver"
	"github.com/shoplens/shop-crawler/internal/driver/drivertest"
)

func testExtractor() *Extractor {
	e := NewExtractor(zap.NewNop())
	e.now = func() time.Time { return time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC) }
	return e
}

func TestExtractPage(t *testing.T) {
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot + "/category/juice")
	page.Add(".product-card",
		drivertest.ProductBlock("جویس توت فرنگی", "185,000"),
		drivertest.ProductBlock("جویس نعنا", "210,000"),
	)
	require.NoError(t, d.Navigate(dokhanRoot+"/category/juice"))

	products := testExtractor().ExtractPage(d, "جویس", "dokhanmarket")

	require.Len(t, products, 2)
	assert.Equal(t, "جویس توت فرنگی", products[0].Name)
	assert.Equal(t, "185000", products[0].Price)
	assert.Equal(t, "جویس", products[0].Categories)
	assert.Equal(t, "Dokhan Market", products[0].Site)
	assert.Equal(t, "dokhanmarket", products[0].SiteID)
	assert.Equal(t, "product", products[0].Type)
	assert.Equal(t, "standard", products[0].Variation)
	assert.Equal(t, "2025-03-14 10:30:00", products[0].ScrapedAt)
}

func TestExtractPageSelectorPriority(t *testing.T) {
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	page.Add(".product-card", drivertest.ProductBlock("از انتخابگر اول", "120,000"))
	page.Add(".product", drivertest.ProductBlock("از انتخابگر دوم", "130,000"))
	require.NoError(t, d.Navigate(dokhanRoot))

	products := testExtractor().ExtractPage(d, "همه", "dokhanmarket")

	// The first selector that yields records wins; later selectors are not
	// unioned in.
	require.Len(t, products, 1)
	assert.Equal(t, "از انتخابگر اول", products[0].Name)
}

func TestExtractPageDedupsWithinPage(t *testing.T) {
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	page.Add(".product-card",
		drivertest.ProductBlock("پاد طعم هلو", "95,000"),
		drivertest.ProductBlock("پاد طعم هلو", "95,000"),
	)
	require.NoError(t, d.Navigate(dokhanRoot))

	products := testExtractor().ExtractPage(d, "پاد", "dokhanmarket")

	assert.Len(t, products, 1)
}

func TestExtractPriceFallsBackToFullText(t *testing.T) {
	block := &drivertest.Element{
		TextVal: "کویل مش استاندارد\nقیمت: 78,500 تومان",
		Tag:     "div",
		Kids: map[string][]driver.Element{
			"h3": {&drivertest.Element{TextVal: "کویل مش استاندارد", Tag: "h3"}},
		},
	}
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	page.Add(".product-card", block)
	require.NoError(t, d.Navigate(dokhanRoot))

	products := testExtractor().ExtractPage(d, "کویل", "dokhanmarket")

	require.Len(t, products, 1)
	assert.Equal(t, "78500", products[0].Price)
}

func TestExtractDropsBlockWithoutPrice(t *testing.T) {
	block := &drivertest.Element{
		TextVal: "محصول بدون قیمت برای نمایش",
		Tag:     "div",
		Kids:    map[string][]driver.Element{},
	}
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	page.Add(".product-card", block)
	require.NoError(t, d.Navigate(dokhanRoot))

	products := testExtractor().ExtractPage(d, "x", "dokhanmarket")

	assert.Empty(t, products)
}

func TestExtractNameFallsBackToFirstLine(t *testing.T) {
	block := &drivertest.Element{
		TextVal: "ویپ مسافرتی کوچک\n145,000 تومان",
		Tag:     "div",
		Kids:    map[string][]driver.Element{},
	}
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	page.Add(".product-card", block)
	require.NoError(t, d.Navigate(dokhanRoot))

	products := testExtractor().ExtractPage(d, "ویپ", "dokhanmarket")

	require.Len(t, products, 1)
	assert.Equal(t, "ویپ مسافرتی کوچک", products[0].Name)
}

func TestExtractURLPrefersAbsoluteAnchor(t *testing.T) {
	block := drivertest.ProductBlock("پاد یکبار مصرف", "65,000")
	block.Kids["a"] = []driver.Element{
		drivertest.Link("", "/relative/link"),
		drivertest.Link("", "https://dokhanmarket3.com/product/pod-65"),
	}
	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	page.Add(".product-card", block)
	require.NoError(t, d.Navigate(dokhanRoot))

	products := testExtractor().ExtractPage(d, "پاد", "dokhanmarket")

	require.Len(t, products, 1)
	assert.Equal(t, "https://dokhanmarket3.com/product/pod-65", products[0].URL)
}

func TestExtractSKU(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"SKU: AB-100 in stock", "AB-100"},
		{"کد: X99 موجود", "X99"},
		{"شناسه: P-771", "P-771"},
		{"مدل جدید VX1200 رسید", "VX1200"},
		{"کد محصول: ۱۲۳ab", "۱۲۳ab"},
		{"هیچ کدی ندارد", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractSKU(tt.text), tt.text)
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "سلام", truncateRunes("سلام", 10))
	assert.Equal(t, "سلا", truncateRunes("سلام", 3))
	assert.Equal(t, "", truncateRunes("", 5))
}

func TestExtractFallback(t *testing.T) {
	block := &drivertest.Element{
		TextVal: "پاد سیستم ویپ ایکس مدل جدید\n1,450,000 تومان\nافزودن به سبد خرید",
		Tag:     "div",
	}
	leaf := &drivertest.Element{TextVal: "1,450,000 تومان", Tag: "span", ParentEl: block}

	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	page.Add("span", leaf)
	require.NoError(t, d.Navigate(dokhanRoot))

	products := testExtractor().ExtractFallback(d, "محصولات اصلی", "dokhanmarket")

	require.Len(t, products, 1)
	assert.Equal(t, "پاد سیستم ویپ ایکس مدل جدید", products[0].Name)
	assert.Equal(t, "1450000", products[0].Price)
	assert.Equal(t, "محصولات اصلی", products[0].Categories)
}

func TestExtractFallbackRejectsNonProductText(t *testing.T) {
	block := &drivertest.Element{
		TextVal: "تماس با پشتیبانی فروشگاه",
		Tag:     "div",
	}
	leaf := &drivertest.Element{TextVal: "قیمت", Tag: "span", ParentEl: block}

	d := drivertest.NewFake()
	page := d.AddPage(dokhanRoot)
	page.Add("span", leaf)
	require.NoError(t, d.Navigate(dokhanRoot))

	products := testExtractor().ExtractFallback(d, "x", "dokhanmarket")

	assert.Empty(t, products)
}
