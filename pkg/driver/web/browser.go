// Package web creates local browser sessions (Chrome, Firefox, Edge) through
// selenium driver services, driven by the WEB section of the configuration.
package web

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/driverkit/pkg/core"
)

// BrowserKind is a supported browser.
type BrowserKind string

// Supported browsers
const (
	Chrome  BrowserKind = "chrome"
	Firefox BrowserKind = "firefox"
	Edge    BrowserKind = "edge"
)

// Browsers lists the supported browsers in a stable order.
var Browsers = []BrowserKind{Chrome, Firefox, Edge}

// ParseBrowser maps a configured browser name onto a BrowserKind.
// Matching ignores case only.
func ParseBrowser(name string) (BrowserKind, error) {
	kind := BrowserKind(strings.ToLower(name))
	switch kind {
	case Chrome, Firefox, Edge:
		return kind, nil
	}
	return "", core.ErrUnsupportedBrowser.
		WithMessage(fmt.Sprintf("unsupported browser %q (supported: chrome, firefox, edge)", name)).
		WithDetails(map[string]interface{}{"browser": name})
}

func (k BrowserKind) String() string {
	return string(k)
}

// DriverBinary returns the name of the driver executable for the browser.
func (k BrowserKind) DriverBinary() string {
	switch k {
	case Chrome:
		return "chromedriver"
	case Firefox:
		return "geckodriver"
	case Edge:
		return "msedgedriver"
	default:
		return ""
	}
}

// DriverEnvVar returns the environment variable that may point at the
// driver executable.
func (k BrowserKind) DriverEnvVar() string {
	if b := k.DriverBinary(); b != "" {
		return strings.ToUpper(b) + "_PATH"
	}
	return ""
}

// DisplayName returns the browser name for messages.
func (k BrowserKind) DisplayName() string {
	switch k {
	case Chrome:
		return "Chrome"
	case Firefox:
		return "Firefox"
	case Edge:
		return "Edge"
	default:
		return string(k)
	}
}
