package web

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/devicelab-dev/driverkit/pkg/config"
	"github.com/devicelab-dev/driverkit/pkg/core"
)

// DriverManager resolves the driver executable for a browser.
type DriverManager interface {
	Install(kind BrowserKind) (string, error)
}

// PathSource provides explicitly configured driver paths.
type PathSource interface {
	WebDriverPath(browser string) (string, bool)
}

// LocalManager finds driver executables already present on the machine.
//
// Resolution order:
//  1. WEB.driver_paths entry for the browser
//  2. $CHROMEDRIVER_PATH, $GECKODRIVER_PATH or $MSEDGEDRIVER_PATH
//  3. <home>/drivers/web/<binary>
//  4. $PATH
//
// An explicit path (1 or 2) that does not exist is an error; it never falls
// through to the later steps.
type LocalManager struct {
	Paths      PathSource
	DriversDir string                       // defaults to <home>/drivers/web
	LookPath   func(string) (string, error) // defaults to exec.LookPath
	Getenv     func(string) string          // defaults to os.Getenv
}

// Install returns the path of the driver executable for kind.
func (m LocalManager) Install(kind BrowserKind) (string, error) {
	binary := kind.DriverBinary()
	if binary == "" {
		return "", core.ErrUnsupportedBrowser.WithDetails(map[string]interface{}{"browser": string(kind)})
	}
	if runtime.GOOS == "windows" {
		binary += ".exe"
	}

	if m.Paths != nil {
		if p, ok := m.Paths.WebDriverPath(string(kind)); ok {
			return checkExplicit(kind, p, "WEB.driver_paths")
		}
	}

	getenv := m.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if p := getenv(kind.DriverEnvVar()); p != "" {
		return checkExplicit(kind, p, "$"+kind.DriverEnvVar())
	}

	dir := m.DriversDir
	if dir == "" {
		dir = config.DriversDir("web")
	}
	if p := filepath.Join(dir, binary); isFile(p) {
		return p, nil
	}

	lookPath := m.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if p, err := lookPath(binary); err == nil {
		return p, nil
	}

	return "", core.ErrDriverError.
		WithMessage(fmt.Sprintf("%s not found: set %s, WEB.driver_paths.%s, or install it into %s or $PATH",
			binary, kind.DriverEnvVar(), kind, dir)).
		WithDetails(map[string]interface{}{"browser": string(kind), "binary": binary})
}

func checkExplicit(kind BrowserKind, path, source string) (string, error) {
	if !isFile(path) {
		return "", core.ErrDriverError.
			WithMessage(fmt.Sprintf("%s from %s does not exist: %s", kind.DriverBinary(), source, path)).
			WithDetails(map[string]interface{}{"browser": string(kind), "path": path})
	}
	return path, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
