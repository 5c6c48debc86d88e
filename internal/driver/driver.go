// Package driver defines the narrow browser capability the crawl engine
// consumes. Implementations must convert element-level failures (detached
// nodes, evaluation errors) into zero values rather than errors: the engine
// treats every such failure as "no match".
package driver

// Driver is one rendering session with a single current page. A session is
// exclusively owned by the run that created it and torn down exactly once.
type Driver interface {
	// Navigate loads the URL and blocks until the page has settled.
	Navigate(url string) error
	// CurrentURL returns the URL of the current page, or "" when unknown.
	CurrentURL() string
	// Title returns the current page title, or "".
	Title() string
	// HTML returns the rendered markup of the current page, or "".
	HTML() string
	// FindAll returns elements matching a CSS selector, nil when none.
	FindAll(selector string) []Element
	// FindAllByTag returns elements with the given tag name, nil when none.
	FindAllByTag(tag string) []Element
	// FindAllByTextContains returns elements whose text contains the given
	// string, searched over the whole document.
	FindAllByTextContains(text string) []Element
	// Close releases the session. Safe to call more than once.
	Close() error
}

// Element is a handle to one rendered node.
type Element interface {
	Text() string
	Attribute(name string) string
	TagName() string
	Visible() bool
	Enabled() bool
	// Click performs a scripted click, bypassing normal hit-testing.
	Click() error
	FindDescendants(selector string) []Element
	FindDescendantsByTag(tag string) []Element
	// Parent returns the immediate container, or nil at the document root.
	Parent() Element
}
