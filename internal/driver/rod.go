package driver

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// RodConfig holds browser session configuration.
type RodConfig struct {
	Headless      bool
	WindowWidth   int
	WindowHeight  int
	NavigateDelay time.Duration
	FindTimeout   time.Duration
}

// DefaultRodConfig returns the default browser configuration.
func DefaultRodConfig() RodConfig {
	return RodConfig{
		Headless:      true,
		WindowWidth:   1920,
		WindowHeight:  1080,
		NavigateDelay: 3 * time.Second,
		FindTimeout:   5 * time.Second,
	}
}

// RodDriver drives a headless Chrome page through go-rod.
type RodDriver struct {
	browser *rod.Browser
	page    *rod.Page
	cfg     RodConfig
	log     *zap.Logger
	closed  bool
}

// NewRodDriver launches a browser and opens a blank page.
func NewRodDriver(cfg RodConfig, log *zap.Logger) (*RodDriver, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("window-size", fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	log.Info("browser session started", zap.Bool("headless", cfg.Headless))
	return &RodDriver{browser: browser, page: page, cfg: cfg, log: log}, nil
}

// Navigate loads the URL, waits for the load event and a fixed settle delay.
func (d *RodDriver) Navigate(url string) error {
	if err := d.page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := d.page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	time.Sleep(d.cfg.NavigateDelay)
	return nil
}

// CurrentURL returns the URL of the current page.
func (d *RodDriver) CurrentURL() string {
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Title returns the current page title.
func (d *RodDriver) Title() string {
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

// HTML returns the rendered markup of the current page.
func (d *RodDriver) HTML() string {
	html, err := d.page.HTML()
	if err != nil {
		return ""
	}
	return html
}

// FindAll returns elements matching a CSS selector.
func (d *RodDriver) FindAll(selector string) []Element {
	els, err := d.page.Timeout(d.cfg.FindTimeout).Elements(selector)
	if err != nil {
		return nil
	}
	return wrapElements(els, d.cfg)
}

// FindAllByTag returns elements with the given tag name.
func (d *RodDriver) FindAllByTag(tag string) []Element {
	return d.FindAll(tag)
}

// FindAllByTextContains returns elements whose text contains the string.
func (d *RodDriver) FindAllByTextContains(text string) []Element {
	xpath := fmt.Sprintf("//*[contains(text(), %s)]", xpathLiteral(text))
	els, err := d.page.Timeout(d.cfg.FindTimeout).ElementsX(xpath)
	if err != nil {
		return nil
	}
	return wrapElements(els, d.cfg)
}

// Close tears the session down. Safe to call more than once.
func (d *RodDriver) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.browser.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	d.log.Info("browser session closed")
	return nil
}

func wrapElements(els rod.Elements, cfg RodConfig) []Element {
	if len(els) == 0 {
		return nil
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el, cfg: cfg})
	}
	return out
}

// xpathLiteral quotes a string for use inside an XPath expression. Strings
// containing both quote kinds need concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `'`) {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, `'`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		quoted = append(quoted, "'"+p+"'")
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

type rodElement struct {
	el  *rod.Element
	cfg RodConfig
}

func (e *rodElement) Text() string {
	text, err := e.el.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (e *rodElement) Attribute(name string) string {
	val, err := e.el.Attribute(name)
	if err != nil || val == nil {
		return ""
	}
	return *val
}

func (e *rodElement) TagName() string {
	obj, err := e.el.Eval("() => this.tagName.toLowerCase()")
	if err != nil {
		return ""
	}
	return obj.Value.Str()
}

func (e *rodElement) Visible() bool {
	visible, err := e.el.Visible()
	if err != nil {
		return false
	}
	return visible
}

func (e *rodElement) Enabled() bool {
	obj, err := e.el.Eval("() => !this.disabled")
	if err != nil {
		return false
	}
	return obj.Value.Bool()
}

// Click dispatches a scripted click and waits a fixed settle delay, like the
// page driver's scripted-click contract requires.
func (e *rodElement) Click() error {
	if _, err := e.el.Eval("() => this.click()"); err != nil {
		return fmt.Errorf("failed to click element: %w", err)
	}
	time.Sleep(e.cfg.NavigateDelay)
	return nil
}

func (e *rodElement) FindDescendants(selector string) []Element {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil
	}
	return wrapElements(els, e.cfg)
}

func (e *rodElement) FindDescendantsByTag(tag string) []Element {
	return e.FindDescendants(tag)
}

func (e *rodElement) Parent() Element {
	parent, err := e.el.Parent()
	if err != nil {
		return nil
	}
	return &rodElement{el: parent, cfg: e.cfg}
}
