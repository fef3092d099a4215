package mock

import (
	"fmt"
	"time"

	"github.com/tebeka/selenium"

	"github.com/devicelab-dev/driverkit/pkg/driver/web"
)

// DefaultPolls is how many times WebDriver.WaitWithTimeout evaluates a
// condition before reporting a timeout.
const DefaultPolls = 3

// WebDriver is an in-memory selenium.WebDriver. Only the methods used by
// providers and page objects are implemented; the rest panic.
type WebDriver struct {
	selenium.WebDriver

	ID        string
	URL       string
	PageTitle string
	Elements  map[string][]*WebElement // keyed by "by=value"
	Polls     int                      // defaults to DefaultPolls
	QuitErr   error
	ActionErr error // returned by mouse button commands

	Visited []string
	Frames  []interface{}
	Actions []string // mouse commands in order, e.g. "move id=drag", "down"
	Quits   int
}

// NewWebDriver returns a driver with an empty page.
func NewWebDriver() *WebDriver {
	return &WebDriver{ID: "mock-web-session", Elements: make(map[string][]*WebElement)}
}

// AddElement registers an element found by the given locator.
func (d *WebDriver) AddElement(by, value string, el *WebElement) *WebElement {
	if d.Elements == nil {
		d.Elements = make(map[string][]*WebElement)
	}
	if el.Name == "" {
		el.Name = by + "=" + value
	}
	el.driver = d
	d.Elements[by+"="+value] = append(d.Elements[by+"="+value], el)
	return el
}

// SessionID implements selenium.WebDriver.
func (d *WebDriver) SessionID() string { return d.ID }

// Quit implements selenium.WebDriver.
func (d *WebDriver) Quit() error {
	d.Quits++
	return d.QuitErr
}

// Get implements selenium.WebDriver.
func (d *WebDriver) Get(url string) error {
	d.Visited = append(d.Visited, url)
	d.URL = url
	return nil
}

// CurrentURL implements selenium.WebDriver.
func (d *WebDriver) CurrentURL() (string, error) { return d.URL, nil }

// Title implements selenium.WebDriver.
func (d *WebDriver) Title() (string, error) { return d.PageTitle, nil }

// FindElement implements selenium.WebDriver.
func (d *WebDriver) FindElement(by, value string) (selenium.WebElement, error) {
	found := d.Elements[by+"="+value]
	if len(found) == 0 {
		return nil, &selenium.Error{Err: "no such element", Message: fmt.Sprintf("%s=%s", by, value), HTTPCode: 404}
	}
	return found[0], nil
}

// FindElements implements selenium.WebDriver.
func (d *WebDriver) FindElements(by, value string) ([]selenium.WebElement, error) {
	var out []selenium.WebElement
	for _, el := range d.Elements[by+"="+value] {
		out = append(out, el)
	}
	return out, nil
}

// SwitchFrame implements selenium.WebDriver.
func (d *WebDriver) SwitchFrame(frame interface{}) error {
	d.Frames = append(d.Frames, frame)
	return nil
}

// Click implements selenium.WebDriver.
func (d *WebDriver) Click(button int) error {
	return d.action(fmt.Sprintf("click %d", button))
}

// DoubleClick implements selenium.WebDriver.
func (d *WebDriver) DoubleClick() error { return d.action("double click") }

// ButtonDown implements selenium.WebDriver.
func (d *WebDriver) ButtonDown() error { return d.action("down") }

// ButtonUp implements selenium.WebDriver.
func (d *WebDriver) ButtonUp() error { return d.action("up") }

func (d *WebDriver) action(name string) error {
	if d.ActionErr != nil {
		return d.ActionErr
	}
	d.Actions = append(d.Actions, name)
	return nil
}

// WaitWithTimeout evaluates condition up to Polls times without sleeping.
// It fails the way the selenium client does once the polls run out.
func (d *WebDriver) WaitWithTimeout(condition selenium.Condition, timeout time.Duration) error {
	polls := d.Polls
	if polls <= 0 {
		polls = DefaultPolls
	}
	for i := 0; i < polls; i++ {
		done, err := condition(d)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return fmt.Errorf("timeout after %v", timeout)
}

// WebElement is an in-memory selenium.WebElement.
type WebElement struct {
	selenium.WebElement

	Name         string // defaults to the locator it was added under
	Content      string
	Hidden       bool
	Stale        bool // MoveTo fails with "stale element reference"
	VisibleAfter int  // IsDisplayed reports false this many times first

	Typed  []string
	Clicks int
	checks int
	driver *WebDriver
}

// IsDisplayed implements selenium.WebElement.
func (e *WebElement) IsDisplayed() (bool, error) {
	e.checks++
	return !e.Hidden && e.checks > e.VisibleAfter, nil
}

// SendKeys implements selenium.WebElement.
func (e *WebElement) SendKeys(keys string) error {
	e.Typed = append(e.Typed, keys)
	return nil
}

// Click implements selenium.WebElement.
func (e *WebElement) Click() error {
	e.Clicks++
	return nil
}

// MoveTo implements selenium.WebElement. The move is recorded on the driver
// the element was added to.
func (e *WebElement) MoveTo(xOffset, yOffset int) error {
	if e.Stale {
		return &selenium.Error{Err: "stale element reference", Message: e.Name, HTTPCode: 404}
	}
	if e.driver != nil {
		move := "move " + e.Name
		if xOffset != 0 || yOffset != 0 {
			move += fmt.Sprintf(" %+d%+d", xOffset, yOffset)
		}
		e.driver.Actions = append(e.driver.Actions, move)
	}
	return nil
}

// Text implements selenium.WebElement.
func (e *WebElement) Text() (string, error) { return e.Content, nil }

// LaunchCall records one Launcher.Launch invocation.
type LaunchCall struct {
	Kind       web.BrowserKind
	DriverPath string
	Options    web.LaunchOptions
}

// Launcher records launch requests and hands out Driver, or fails with Err.
type Launcher struct {
	Driver *WebDriver
	Err    error
	Calls  []LaunchCall
}

// Launch implements web.Launcher.
func (l *Launcher) Launch(kind web.BrowserKind, driverPath string, opts web.LaunchOptions) (selenium.WebDriver, error) {
	l.Calls = append(l.Calls, LaunchCall{Kind: kind, DriverPath: driverPath, Options: opts})
	if l.Err != nil {
		return nil, l.Err
	}
	if l.Driver == nil {
		l.Driver = NewWebDriver()
	}
	return l.Driver, nil
}

// DriverManager returns Path for every browser, or fails with Err.
type DriverManager struct {
	Path      string
	Err       error
	Installed []web.BrowserKind
}

// Install implements web.DriverManager.
func (m *DriverManager) Install(kind web.BrowserKind) (string, error) {
	m.Installed = append(m.Installed, kind)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Path == "" {
		return "/usr/local/bin/" + kind.DriverBinary(), nil
	}
	return m.Path, nil
}
