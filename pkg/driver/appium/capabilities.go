package appium

import "strings"

// Capabilities is a W3C capability set sent in alwaysMatch.
type Capabilities map[string]interface{}

// Android UiAutomator2 defaults.
const (
	PlatformAndroid       = "Android"
	AutomationUiAutomator = "UiAutomator2"
)

// w3cCapabilities are the standard capability names that are sent
// without a vendor prefix.
var w3cCapabilities = map[string]bool{
	"browserName":               true,
	"browserVersion":            true,
	"platformName":              true,
	"acceptInsecureCerts":       true,
	"pageLoadStrategy":          true,
	"proxy":                     true,
	"setWindowRect":             true,
	"timeouts":                  true,
	"unhandledPromptBehavior":   true,
	"strictFileInteractability": true,
	"webSocketUrl":              true,
}

// UiAutomator2Capabilities translates a raw capability mapping into an
// Android UiAutomator2 capability set. Standard W3C names are kept, vendor
// names get the "appium:" prefix unless they already carry a prefix, and
// platformName and automationName default to Android/UiAutomator2.
func UiAutomator2Capabilities(raw map[string]interface{}) Capabilities {
	caps := Capabilities{
		"platformName":          PlatformAndroid,
		"appium:automationName": AutomationUiAutomator,
	}
	for name, value := range raw {
		caps.Set(name, value)
	}
	return caps
}

// Set stores a capability under its W3C-compliant name.
func (c Capabilities) Set(name string, value interface{}) {
	c[capabilityName(name)] = value
}

// Get returns a capability by its plain or prefixed name.
func (c Capabilities) Get(name string) (interface{}, bool) {
	v, ok := c[capabilityName(name)]
	return v, ok
}

func capabilityName(name string) string {
	if w3cCapabilities[name] || strings.Contains(name, ":") {
		return name
	}
	return "appium:" + name
}
