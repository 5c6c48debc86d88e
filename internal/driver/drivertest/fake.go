// Package drivertest provides an in-memory page driver for engine tests. No
// browser or network is involved: tests script pages, selectors and elements.
package drivertest

import (
	"fmt"
	"strings"

	"github.com/shoplens/shop-crawler/internal/driver"
)

// Fake is a scripted driver. Pages are keyed by URL; navigating to an
// unknown URL fails, which is how tests simulate dead pages.
type Fake struct {
	Pages  map[string]*Page
	NavLog []string
	Closed int

	current    *Page
	currentURL string
}

// NewFake returns an empty fake driver.
func NewFake() *Fake {
	return &Fake{Pages: map[string]*Page{}}
}

// AddPage registers a page under the given URL and returns it for scripting.
func (f *Fake) AddPage(url string) *Page {
	p := &Page{Selectors: map[string][]driver.Element{}}
	f.Pages[url] = p
	return p
}

// Navigate records the navigation and switches the current page.
func (f *Fake) Navigate(url string) error {
	f.NavLog = append(f.NavLog, url)
	p, ok := f.Pages[url]
	if !ok {
		return fmt.Errorf("no page registered for %s", url)
	}
	f.current = p
	f.currentURL = url
	return nil
}

func (f *Fake) CurrentURL() string {
	return f.currentURL
}

func (f *Fake) Title() string {
	if f.current == nil {
		return ""
	}
	return f.current.TitleVal
}

func (f *Fake) HTML() string {
	if f.current == nil {
		return ""
	}
	return f.current.HTMLVal
}

func (f *Fake) FindAll(selector string) []driver.Element {
	if f.current == nil {
		return nil
	}
	return f.current.Selectors[selector]
}

func (f *Fake) FindAllByTag(tag string) []driver.Element {
	return f.FindAll(tag)
}

func (f *Fake) FindAllByTextContains(text string) []driver.Element {
	if f.current == nil {
		return nil
	}
	var out []driver.Element
	seen := map[driver.Element]bool{}
	for _, els := range f.current.Selectors {
		for _, el := range els {
			if seen[el] {
				continue
			}
			seen[el] = true
			if strings.Contains(el.Text(), text) {
				out = append(out, el)
			}
		}
	}
	return out
}

func (f *Fake) Close() error {
	f.Closed++
	return nil
}

// Page is the scripted state of one rendered URL.
type Page struct {
	TitleVal  string
	HTMLVal   string
	Selectors map[string][]driver.Element
}

// Add registers elements under a selector.
func (p *Page) Add(selector string, els ...driver.Element) {
	p.Selectors[selector] = append(p.Selectors[selector], els...)
}

// Element is a scripted DOM node.
type Element struct {
	TextVal  string
	Tag      string
	Attrs    map[string]string
	Hidden   bool
	Disabled bool
	Kids     map[string][]driver.Element
	ParentEl driver.Element
	Clicks   int
	OnClick  func() error
}

func (e *Element) Text() string { return e.TextVal }

func (e *Element) Attribute(name string) string {
	return e.Attrs[name]
}

func (e *Element) TagName() string { return e.Tag }

func (e *Element) Visible() bool { return !e.Hidden }

func (e *Element) Enabled() bool { return !e.Disabled }

func (e *Element) Click() error {
	e.Clicks++
	if e.OnClick != nil {
		return e.OnClick()
	}
	return nil
}

func (e *Element) FindDescendants(selector string) []driver.Element {
	return e.Kids[selector]
}

func (e *Element) FindDescendantsByTag(tag string) []driver.Element {
	return e.Kids[tag]
}

func (e *Element) Parent() driver.Element {
	return e.ParentEl
}

// Link builds an anchor element.
func Link(text, href string) *Element {
	return &Element{TextVal: text, Tag: "a", Attrs: map[string]string{"href": href}}
}

// ProductBlock builds a product element with name and price descendants, the
// shape the WooCommerce-style listing pages render.
func ProductBlock(name, price string) *Element {
	block := &Element{
		TextVal: name + "\n" + price + " تومان",
		Tag:     "div",
		Kids:    map[string][]driver.Element{},
	}
	block.Kids["h3"] = []driver.Element{&Element{TextVal: name, Tag: "h3"}}
	block.Kids[".price"] = []driver.Element{&Element{TextVal: price + " تومان", Tag: "span"}}
	return block
}
