package page

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/devicelab-dev/driverkit/pkg/core"
	"github.com/devicelab-dev/driverkit/pkg/driver/appium"
)

// dragDurationMs is the move duration of a W3C drag.
const dragDurationMs = 600

// MobileSession is the part of an Appium session the mobile page object
// uses. *appium.Client implements it.
type MobileSession interface {
	SetImplicitWait(timeout time.Duration) error
	FindElement(strategy, value string) (string, error)
	FindElements(strategy, value string) ([]string, error)
	IsElementDisplayed(elementID string) (bool, error)
	GetElementRect(elementID string) (x, y, w, h int, err error)
	DoubleTapElement(elementID string) error
	Drag(startX, startY, endX, endY, durationMs int) error
	ExecuteMobile(command string, args map[string]interface{}) (interface{}, error)
}

var _ MobileSession = (*appium.Client)(nil)

// Mobile is a page object over an Appium session.
type Mobile struct {
	s MobileSession
	settings
	waitSet bool
}

// NewMobile wraps a live Appium session.
func NewMobile(s MobileSession, opts ...Option) *Mobile {
	return &Mobile{s: s, settings: newSettings("mobile", opts)}
}

// FindElement returns the id of the displayed element located by
// (strategy, value). The server's implicit wait, set to the page timeout
// on first lookup, bounds the search.
func (p *Mobile) FindElement(strategy, value string) (string, error) {
	return core.CallValue(p.log, "find element", func() (string, error) {
		details := locatorDetails(strategy, value)
		if err := p.implicitWait(); err != nil {
			return "", mobileError(err, details)
		}
		id, err := p.s.FindElement(strategy, value)
		if err != nil {
			return "", mobileError(err, details)
		}
		shown, err := p.s.IsElementDisplayed(id)
		if err != nil {
			return "", mobileError(err, details)
		}
		if !shown {
			return "", core.ErrTimeout.
				WithMessage(fmt.Sprintf("element %s=%q is not displayed", strategy, value)).
				WithDetails(details)
		}
		return id, nil
	}, zap.String("using", strategy), zap.String("value", value))
}

// FindElements returns the ids of every element located by
// (strategy, value). An empty result after the implicit wait is a timeout.
func (p *Mobile) FindElements(strategy, value string) ([]string, error) {
	return core.CallValue(p.log, "find elements", func() ([]string, error) {
		details := locatorDetails(strategy, value)
		if err := p.implicitWait(); err != nil {
			return nil, mobileError(err, details)
		}
		ids, err := p.s.FindElements(strategy, value)
		if err != nil {
			return nil, mobileError(err, details)
		}
		if len(ids) == 0 {
			return nil, core.ErrTimeout.
				WithMessage(fmt.Sprintf("no elements %s=%q within %s", strategy, value, p.timeout)).
				WithDetails(details)
		}
		return ids, nil
	}, zap.String("using", strategy), zap.String("value", value))
}

func (p *Mobile) implicitWait() error {
	if p.waitSet {
		return nil
	}
	if err := p.s.SetImplicitWait(p.timeout); err != nil {
		return err
	}
	p.waitSet = true
	return nil
}

// DoubleTap double taps the element through W3C pointer actions.
func (p *Mobile) DoubleTap(elementID string) error {
	return core.Call(p.log, "double tap", func() error {
		return mobileError(p.s.DoubleTapElement(elementID), elementDetails(elementID))
	}, zap.String("element", elementID))
}

// DoubleTapGesture double taps the element location with the
// mobile: doubleClickGesture command.
func (p *Mobile) DoubleTapGesture(elementID string) error {
	return core.Call(p.log, "double tap gesture", func() error {
		x, y, _, _, err := p.s.GetElementRect(elementID)
		if err != nil {
			return mobileError(err, elementDetails(elementID))
		}
		_, err = p.s.ExecuteMobile("doubleClickGesture", map[string]interface{}{"x": x, "y": y})
		return mobileError(err, elementDetails(elementID))
	}, zap.String("element", elementID))
}

// DragAndDrop drags the center of source onto the center of target through
// W3C pointer actions.
func (p *Mobile) DragAndDrop(sourceID, targetID string) error {
	return core.Call(p.log, "drag and drop", func() error {
		sx, sy, err := p.center(sourceID)
		if err != nil {
			return err
		}
		tx, ty, err := p.center(targetID)
		if err != nil {
			return err
		}
		return mobileError(p.s.Drag(sx, sy, tx, ty, dragDurationMs), dragDetails(sourceID, targetID))
	}, zap.String("source", sourceID), zap.String("target", targetID))
}

// DragAndDropGesture drags source to the location of target with the
// mobile: dragGesture command.
func (p *Mobile) DragAndDropGesture(sourceID, targetID string) error {
	return core.Call(p.log, "drag and drop gesture", func() error {
		x, y, _, _, err := p.s.GetElementRect(targetID)
		if err != nil {
			return mobileError(err, elementDetails(targetID))
		}
		_, err = p.s.ExecuteMobile("dragGesture", map[string]interface{}{
			"elementId": sourceID,
			"endX":      x,
			"endY":      y,
		})
		return mobileError(err, dragDetails(sourceID, targetID))
	}, zap.String("source", sourceID), zap.String("target", targetID))
}

func (p *Mobile) center(elementID string) (int, int, error) {
	x, y, w, h, err := p.s.GetElementRect(elementID)
	if err != nil {
		return 0, 0, mobileError(err, elementDetails(elementID))
	}
	return x + w/2, y + h/2, nil
}

func locatorDetails(strategy, value string) map[string]interface{} {
	return map[string]interface{}{"using": strategy, "value": value}
}

func elementDetails(id string) map[string]interface{} {
	return map[string]interface{}{"element": id}
}

func dragDetails(source, target string) map[string]interface{} {
	return map[string]interface{}{"source": source, "target": target}
}

func mobileError(err error, details map[string]interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, appium.ErrNoSuchElement) {
		return core.ErrElementNotFound.WithCause(err).WithDetails(details)
	}
	var wdErr *appium.Error
	if errors.As(err, &wdErr) {
		switch wdErr.Code {
		case "no such element", "stale element reference":
			return core.ErrElementNotFound.WithCause(err).WithDetails(details)
		case "timeout":
			return core.ErrTimeout.WithCause(err).WithDetails(details)
		}
	}
	return core.ErrDriverError.WithCause(err).WithDetails(details)
}
