// Package config loads the driverkit configuration document (config/config.json).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/driverkit/pkg/core"
)

const (
	// DefaultFile is the conventional location of the configuration document.
	DefaultFile = "config/config.json"

	envConfig = "DRIVERKIT_CONFIG"
)

// Section names of the configuration document.
const (
	SectionWeb    = "WEB"
	SectionMobile = "MOBILE"
)

// Document is the parsed configuration document. Pointer and map fields stay
// nil when the key is absent so getters can tell "missing" from "empty".
type Document struct {
	Web    *WebSection    `json:"WEB" yaml:"WEB"`
	Mobile *MobileSection `json:"MOBILE" yaml:"MOBILE"`
}

// WebSection holds browser settings.
type WebSection struct {
	URLs    map[string]string `json:"urls" yaml:"urls"`       // Named application URLs
	Browser *string           `json:"browser" yaml:"browser"` // chrome, firefox, edge

	// Optional
	Headless    bool              `json:"headless" yaml:"headless"`
	DriverPaths map[string]string `json:"driver_paths" yaml:"driver_paths"` // browser -> driver binary
	Arguments   []string          `json:"arguments" yaml:"arguments"`       // Extra browser arguments
}

// MobileSection holds Appium settings.
type MobileSection struct {
	AppiumServer        *string                `json:"appium_server" yaml:"appium_server"`
	DesiredCapabilities map[string]interface{} `json:"desired_capabilities" yaml:"desired_capabilities"`
}

// Store is an immutable view over a loaded Document.
type Store struct {
	path string
	doc  Document
}

// DefaultPath returns $DRIVERKIT_CONFIG, or DefaultFile when unset.
func DefaultPath() string {
	if p := os.Getenv(envConfig); p != "" {
		return p
	}
	return DefaultFile
}

// Load reads and validates the configuration document at path.
// A .json file is decoded as JSON, anything else as YAML.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, notFound(path, err)
	}

	var raw interface{}
	if err := decode(path, data, &raw); err != nil {
		return nil, notFound(path, err)
	}
	if raw == nil {
		return nil, notFound(path, fmt.Errorf("empty document"))
	}

	if err := validate(raw); err != nil {
		return nil, core.ErrConfigInvalid.
			WithMessage(fmt.Sprintf("invalid configuration %s", path)).
			WithCause(err).
			WithDetails(map[string]interface{}{"path": path})
	}

	var doc Document
	if err := decode(path, data, &doc); err != nil {
		return nil, core.ErrConfigInvalid.
			WithMessage(fmt.Sprintf("invalid configuration %s", path)).
			WithCause(err).
			WithDetails(map[string]interface{}{"path": path})
	}

	return &Store{path: path, doc: doc}, nil
}

func decode(path string, data []byte, v interface{}) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Unmarshal(data, v)
	}
	return yaml.Unmarshal(data, v)
}

// Discover looks for a configuration document under dir.
func Discover(dir string) (*Store, error) {
	candidates := []string{
		DefaultFile,
		"config.json",
		"config.yaml",
		"config.yml",
	}
	for _, name := range candidates {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return nil, notFound(filepath.Join(dir, DefaultFile), fmt.Errorf("no configuration file in %s", dir))
}

// Path returns the file the store was loaded from.
func (s *Store) Path() string {
	return s.path
}

// WebBrowser returns the configured browser name, lower-cased.
func (s *Store) WebBrowser() (string, error) {
	if s.doc.Web == nil || s.doc.Web.Browser == nil {
		return "", keyMissing(SectionWeb, "browser")
	}
	return strings.ToLower(*s.doc.Web.Browser), nil
}

// WebURLs returns a copy of the named URL mapping.
func (s *Store) WebURLs() (map[string]string, error) {
	if s.doc.Web == nil || s.doc.Web.URLs == nil {
		return nil, keyMissing(SectionWeb, "urls")
	}
	urls := make(map[string]string, len(s.doc.Web.URLs))
	for k, v := range s.doc.Web.URLs {
		urls[k] = v
	}
	return urls, nil
}

// WebURL returns a single named URL.
func (s *Store) WebURL(name string) (string, error) {
	urls, err := s.WebURLs()
	if err != nil {
		return "", err
	}
	u, ok := urls[name]
	if !ok {
		return "", keyMissing(SectionWeb+".urls", name)
	}
	return u, nil
}

// WebHeadless reports whether browsers should start headless. Defaults to false.
func (s *Store) WebHeadless() bool {
	return s.doc.Web != nil && s.doc.Web.Headless
}

// WebDriverPath returns an explicitly configured driver binary for browser.
func (s *Store) WebDriverPath(browser string) (string, bool) {
	if s.doc.Web == nil {
		return "", false
	}
	p, ok := s.doc.Web.DriverPaths[strings.ToLower(browser)]
	return p, ok && p != ""
}

// WebArguments returns a copy of the extra browser arguments.
func (s *Store) WebArguments() []string {
	if s.doc.Web == nil || len(s.doc.Web.Arguments) == 0 {
		return nil
	}
	return append([]string(nil), s.doc.Web.Arguments...)
}

// MobileServerURL returns the Appium server address.
func (s *Store) MobileServerURL() (string, error) {
	if s.doc.Mobile == nil || s.doc.Mobile.AppiumServer == nil {
		return "", keyMissing(SectionMobile, "appium_server")
	}
	return *s.doc.Mobile.AppiumServer, nil
}

// MobileCapabilities returns a deep copy of the desired capabilities.
func (s *Store) MobileCapabilities() (map[string]interface{}, error) {
	if s.doc.Mobile == nil || s.doc.Mobile.DesiredCapabilities == nil {
		return nil, keyMissing(SectionMobile, "desired_capabilities")
	}
	caps, _ := copyValue(s.doc.Mobile.DesiredCapabilities).(map[string]interface{})
	return caps, nil
}

func notFound(path string, cause error) error {
	return core.ErrConfigNotFound.
		WithMessage(fmt.Sprintf("configuration file not found: %s", path)).
		WithCause(cause).
		WithDetails(map[string]interface{}{"path": path})
}

func keyMissing(section, key string) error {
	return core.ErrConfigKeyMissing.
		WithMessage(fmt.Sprintf("missing configuration key %s.%s", section, key)).
		WithDetails(map[string]interface{}{"section": section, "key": key})
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = copyValue(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = copyValue(val)
		}
		return s
	default:
		return v
	}
}
