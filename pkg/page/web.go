// Package page provides thin page objects over live sessions. Every call is
// logged with its operation name and locator.
package page

import (
	"errors"
	"strings"
	"time"

	"github.com/tebeka/selenium"
	"go.uber.org/zap"

	"github.com/devicelab-dev/driverkit/pkg/core"
	"github.com/devicelab-dev/driverkit/pkg/logger"
)

// DefaultTimeout bounds element waits.
const DefaultTimeout = 10 * time.Second

// W3C error codes that mean "not there yet" while waiting.
var retryableCodes = map[string]bool{
	"no such element":         true,
	"stale element reference": true,
}

// Option configures a page object.
type Option func(*settings)

type settings struct {
	timeout time.Duration
	log     *zap.Logger
}

// WithTimeout sets the element wait timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithLogger sets the logger. Defaults to the process logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.log = l }
}

func newSettings(name string, opts []Option) settings {
	s := settings{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = logger.Named("page")
	}
	s.log = s.log.With(zap.String("page", name))
	return s
}

// Web is a page object over a browser session.
type Web struct {
	wd selenium.WebDriver
	settings
}

// NewWeb wraps a live browser session.
func NewWeb(wd selenium.WebDriver, opts ...Option) *Web {
	return &Web{wd: wd, settings: newSettings("web", opts)}
}

// Driver returns the underlying session.
func (p *Web) Driver() selenium.WebDriver {
	return p.wd
}

// OpenURL navigates to url.
func (p *Web) OpenURL(url string) error {
	return core.Call(p.log, "open url", func() error {
		return driverError(p.wd.Get(url))
	}, zap.String("url", url))
}

// CurrentURL returns the URL of the current page.
func (p *Web) CurrentURL() (string, error) {
	return core.CallValue(p.log, "get current url", func() (string, error) {
		u, err := p.wd.CurrentURL()
		return u, driverError(err)
	})
}

// Title returns the title of the current page.
func (p *Web) Title() (string, error) {
	return core.CallValue(p.log, "get title", func() (string, error) {
		t, err := p.wd.Title()
		return t, driverError(err)
	})
}

// FindElement waits until the element located by (by, value) is displayed.
func (p *Web) FindElement(by, value string) (selenium.WebElement, error) {
	return core.CallValue(p.log, "find element", func() (selenium.WebElement, error) {
		return p.visible(by, value)
	}, zap.String("by", by), zap.String("value", value))
}

// FindElements waits until at least one element located by (by, value) is
// present in the page.
func (p *Web) FindElements(by, value string) ([]selenium.WebElement, error) {
	return core.CallValue(p.log, "find elements", func() ([]selenium.WebElement, error) {
		var found []selenium.WebElement
		err := p.wd.WaitWithTimeout(func(wd selenium.WebDriver) (bool, error) {
			els, err := wd.FindElements(by, value)
			if err != nil {
				if retryable(err) {
					return false, nil
				}
				return false, err
			}
			found = els
			return len(els) > 0, nil
		}, p.timeout)
		if err != nil {
			return nil, p.waitError(err, by, value)
		}
		return found, nil
	}, zap.String("by", by), zap.String("value", value))
}

// SendKeys types text into the element located by (by, value) once it is
// displayed.
func (p *Web) SendKeys(by, value, text string) error {
	return core.Call(p.log, "send keys", func() error {
		el, err := p.visible(by, value)
		if err != nil {
			return err
		}
		return driverError(el.SendKeys(text))
	}, zap.String("by", by), zap.String("value", value))
}

// SwitchToFrame switches to the frame located by (by, value). An empty by
// switches back to the top-level document.
func (p *Web) SwitchToFrame(by, value string) error {
	return core.Call(p.log, "switch to frame", func() error {
		if by == "" {
			return driverError(p.wd.SwitchFrame(nil))
		}
		el, err := p.visible(by, value)
		if err != nil {
			return err
		}
		return driverError(p.wd.SwitchFrame(el))
	}, zap.String("by", by), zap.String("value", value))
}

// ClickAndHold presses the left button on source, moves to target and
// releases it there.
func (p *Web) ClickAndHold(source, target selenium.WebElement) error {
	return core.Call(p.log, "click and hold", func() error {
		return p.drag(source, target)
	})
}

// DoubleClick double clicks the element.
func (p *Web) DoubleClick(el selenium.WebElement) error {
	return core.Call(p.log, "double click", func() error {
		if err := el.MoveTo(0, 0); err != nil {
			return actionError(err)
		}
		return actionError(p.wd.DoubleClick())
	})
}

// DragAndDrop drags source onto target.
func (p *Web) DragAndDrop(source, target selenium.WebElement) error {
	return core.Call(p.log, "drag and drop", func() error {
		return p.drag(source, target)
	})
}

// Hover moves the mouse over the element.
func (p *Web) Hover(el selenium.WebElement) error {
	return core.Call(p.log, "hover", func() error {
		return actionError(el.MoveTo(0, 0))
	})
}

// ContextClick right clicks the element.
func (p *Web) ContextClick(el selenium.WebElement) error {
	return core.Call(p.log, "context click", func() error {
		if err := el.MoveTo(0, 0); err != nil {
			return actionError(err)
		}
		return actionError(p.wd.Click(selenium.RightButton))
	})
}

func (p *Web) drag(source, target selenium.WebElement) error {
	if err := source.MoveTo(0, 0); err != nil {
		return actionError(err)
	}
	if err := p.wd.ButtonDown(); err != nil {
		return actionError(err)
	}
	if err := target.MoveTo(0, 0); err != nil {
		return actionError(err)
	}
	return actionError(p.wd.ButtonUp())
}

func (p *Web) visible(by, value string) (selenium.WebElement, error) {
	var found selenium.WebElement
	err := p.wd.WaitWithTimeout(func(wd selenium.WebDriver) (bool, error) {
		el, err := wd.FindElement(by, value)
		if err != nil {
			if retryable(err) {
				return false, nil
			}
			return false, err
		}
		shown, err := el.IsDisplayed()
		if err != nil {
			if retryable(err) {
				return false, nil
			}
			return false, err
		}
		if shown {
			found = el
		}
		return shown, nil
	}, p.timeout)
	if err != nil {
		return nil, p.waitError(err, by, value)
	}
	return found, nil
}

func (p *Web) waitError(err error, by, value string) error {
	details := map[string]interface{}{"by": by, "value": value, "timeout": p.timeout.String()}
	// the selenium client reports an expired wait as "timeout after <elapsed>"
	if strings.HasPrefix(err.Error(), "timeout") {
		return core.ErrTimeout.
			WithMessage("timed out waiting for element " + by + "=" + value).
			WithCause(err).
			WithDetails(details)
	}
	var execErr *core.ExecutionError
	if errors.As(err, &execErr) {
		return err
	}
	return core.ErrDriverError.WithCause(err).WithDetails(details)
}

func retryable(err error) bool {
	var selErr *selenium.Error
	return errors.As(err, &selErr) && retryableCodes[selErr.Err]
}

// actionError maps a mouse command failure. A detached element is reported
// as not found.
func actionError(err error) error {
	if err == nil {
		return nil
	}
	if retryable(err) {
		return core.ErrElementNotFound.WithCause(err)
	}
	return core.ErrDriverError.WithCause(err)
}

func driverError(err error) error {
	if err == nil {
		return nil
	}
	return core.ErrDriverError.WithCause(err)
}
