package web

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"
)

// LaunchOptions are the browser settings taken from WEB.
type LaunchOptions struct {
	Headless bool
	Args     []string
	Output   io.Writer // driver service output, discarded when nil
}

// Launcher starts a local driver service and opens a browser session on it.
// Quitting the returned session also stops the service.
type Launcher interface {
	Launch(kind BrowserKind, driverPath string, opts LaunchOptions) (selenium.WebDriver, error)
}

// SeleniumLauncher launches chromedriver, geckodriver or msedgedriver on a
// free local port.
type SeleniumLauncher struct{}

// Launch implements Launcher.
func (SeleniumLauncher) Launch(kind BrowserKind, driverPath string, opts LaunchOptions) (selenium.WebDriver, error) {
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("pick a port for %s: %w", kind.DriverBinary(), err)
	}

	var svcOpts []selenium.ServiceOption
	if opts.Output != nil {
		svcOpts = append(svcOpts, selenium.Output(opts.Output))
	}

	var (
		service *selenium.Service
		prefix  string
	)
	switch kind {
	case Chrome, Edge:
		// msedgedriver is chromium-based and takes chromedriver's flags
		service, err = selenium.NewChromeDriverService(driverPath, port, svcOpts...)
		prefix = fmt.Sprintf("http://localhost:%d/wd/hub", port)
	case Firefox:
		service, err = selenium.NewGeckoDriverService(driverPath, port, svcOpts...)
		prefix = fmt.Sprintf("http://localhost:%d", port)
	default:
		return nil, fmt.Errorf("no driver service for browser %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", kind.DriverBinary(), err)
	}

	wd, err := selenium.NewRemote(browserCapabilities(kind, opts), prefix)
	if err != nil {
		if stopErr := service.Stop(); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("stop %s: %w", kind.DriverBinary(), stopErr))
		}
		return nil, err
	}
	return &serviceSession{WebDriver: wd, service: service}, nil
}

// serviceSession ties a browser session to the driver service that runs it.
type serviceSession struct {
	selenium.WebDriver
	service interface{ Stop() error }
}

// Quit ends the browser session and then stops the service.
func (s *serviceSession) Quit() error {
	quitErr := s.WebDriver.Quit()
	var stopErr error
	if s.service != nil {
		stopErr = s.service.Stop()
	}
	return errors.Join(quitErr, stopErr)
}

func browserCapabilities(kind BrowserKind, opts LaunchOptions) selenium.Capabilities {
	args := append([]string(nil), opts.Args...)

	switch kind {
	case Firefox:
		if opts.Headless {
			args = append(args, "-headless")
		}
		caps := selenium.Capabilities{"browserName": "firefox"}
		caps.AddFirefox(firefox.Capabilities{Args: args})
		return caps
	case Edge:
		if opts.Headless {
			args = append(args, "--headless=new")
		}
		return selenium.Capabilities{
			"browserName":    "MicrosoftEdge",
			"ms:edgeOptions": map[string]interface{}{"args": args},
		}
	default:
		if opts.Headless {
			args = append(args, "--headless=new")
		}
		caps := selenium.Capabilities{"browserName": "chrome"}
		caps.AddChrome(chrome.Capabilities{Args: args})
		return caps
	}
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
