package web

import (
	"errors"
	"io"
	"strings"

	"github.com/tebeka/selenium"
	"go.uber.org/zap"

	"github.com/devicelab-dev/driverkit/pkg/core"
	"github.com/devicelab-dev/driverkit/pkg/logger"
)

// codeSessionNotCreated is the W3C error code for a refused new session.
const codeSessionNotCreated = "session not created"

// ConfigSource is the part of the configuration the web provider reads.
// *config.Store implements it.
type ConfigSource interface {
	PathSource
	WebBrowser() (string, error)
	WebHeadless() bool
	WebArguments() []string
}

// Provider creates and releases one local browser session from
// configuration. It is not safe for concurrent use.
type Provider struct {
	cfg      ConfigSource
	manager  DriverManager
	launcher Launcher
	output   io.Writer
	kind     BrowserKind
	life     *core.Lifecycle[selenium.WebDriver]
}

var _ core.Provider[selenium.WebDriver] = (*Provider)(nil)

type options struct {
	manager  DriverManager
	launcher Launcher
	output   io.Writer
	log      *zap.Logger
}

// Option configures a Provider.
type Option func(*options)

// WithDriverManager replaces the driver binary resolver.
func WithDriverManager(m DriverManager) Option {
	return func(o *options) { o.manager = m }
}

// WithLauncher replaces the session launcher.
func WithLauncher(l Launcher) Option {
	return func(o *options) { o.launcher = l }
}

// WithDriverOutput sends driver service output to w.
func WithDriverOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithLogger sets the logger. Defaults to the process logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewProvider creates a web provider reading from cfg.
func NewProvider(cfg ConfigSource, opts ...Option) *Provider {
	o := options{launcher: SeleniumLauncher{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.manager == nil {
		o.manager = LocalManager{Paths: cfg}
	}
	if o.log == nil {
		o.log = logger.Named("web")
	}
	return &Provider{
		cfg:      cfg,
		manager:  o.manager,
		launcher: o.launcher,
		output:   o.output,
		life:     core.NewLifecycle[selenium.WebDriver]("web", o.log),
	}
}

// ResolveBrowser reads WEB.browser and validates it.
func (p *Provider) ResolveBrowser() (BrowserKind, error) {
	log := p.life.Logger()

	name, err := core.CallValue(log, "resolve browser", p.cfg.WebBrowser)
	if err != nil {
		p.life.Reset()
		return "", err
	}

	kind, err := core.CallValue(log, "validate browser", func() (BrowserKind, error) {
		return ParseBrowser(name)
	}, zap.String("browser", name))
	if err != nil {
		p.life.Reset()
		return "", err
	}

	p.kind = kind
	p.life.Select()
	return kind, nil
}

// Browser returns the last resolved browser, or "" before ResolveBrowser.
func (p *Provider) Browser() BrowserKind {
	return p.kind
}

// Create resolves the browser and its driver binary and opens a local
// session. A failed attempt is final: nothing is retried and no handle is
// kept.
func (p *Provider) Create() (selenium.WebDriver, error) {
	if p.life.Active() {
		return nil, core.ErrSessionActive.WithDetails(map[string]interface{}{"provider": "web"})
	}

	kind, err := p.ResolveBrowser()
	if err != nil {
		return nil, err
	}
	log := p.life.Logger().With(zap.String("browser", kind.String()))

	driverPath, err := core.CallValue(log, "resolve driver binary", func() (string, error) {
		path, err := p.manager.Install(kind)
		if err != nil {
			return "", classify(err, kind)
		}
		return path, nil
	})
	if err != nil {
		p.life.Reset()
		return nil, err
	}

	opts := LaunchOptions{
		Headless: p.cfg.WebHeadless(),
		Args:     p.cfg.WebArguments(),
		Output:   p.output,
	}
	wd, err := core.CallValue(log, "create web driver", func() (selenium.WebDriver, error) {
		wd, err := p.launcher.Launch(kind, driverPath, opts)
		if err != nil {
			return nil, classify(err, kind)
		}
		if wd == nil {
			return nil, core.ErrDriverError.
				WithMessage("launcher returned no session").
				WithDetails(map[string]interface{}{"browser": kind.String()})
		}
		return wd, nil
	}, zap.String("driver_path", driverPath), zap.Bool("headless", opts.Headless))
	if err != nil {
		p.life.Reset()
		return nil, err
	}

	if err := p.life.Set(wd); err != nil {
		return nil, err
	}
	log.Info(kind.DisplayName()+" session ready", zap.String("session_id", wd.SessionID()))
	return wd, nil
}

// Quit releases the session and stops its driver service. Safe to call any
// number of times.
func (p *Provider) Quit() error {
	return p.life.Quit()
}

// State returns the lifecycle state.
func (p *Provider) State() core.State {
	return p.life.State()
}

// Handle returns the live session, if any.
func (p *Provider) Handle() (selenium.WebDriver, bool) {
	return p.life.Handle()
}

// classify maps a launcher fault onto the error taxonomy. Errors that are
// already classified pass through.
func classify(err error, kind BrowserKind) error {
	var execErr *core.ExecutionError
	if errors.As(err, &execErr) {
		return err
	}

	details := map[string]interface{}{"browser": kind.String()}

	var selErr *selenium.Error
	if errors.As(err, &selErr) && selErr.Err == codeSessionNotCreated {
		return core.ErrSessionNotCreated.WithCause(err).WithDetails(details)
	}
	// Drivers that answer outside the W3C envelope still name the code.
	if strings.Contains(strings.ToLower(err.Error()), codeSessionNotCreated) {
		return core.ErrSessionNotCreated.WithCause(err).WithDetails(details)
	}
	return core.ErrDriverError.WithCause(err).WithDetails(details)
}
