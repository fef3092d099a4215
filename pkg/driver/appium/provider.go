package appium

import (
	"errors"
	"net"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/devicelab-dev/driverkit/pkg/core"
	"github.com/devicelab-dev/driverkit/pkg/logger"
)

// codeSessionNotCreated is the W3C error code for a refused new session.
const codeSessionNotCreated = "session not created"

// ConfigSource is the part of the configuration the mobile provider reads.
// *config.Store implements it.
type ConfigSource interface {
	MobileServerURL() (string, error)
	MobileCapabilities() (map[string]interface{}, error)
}

// SessionOpener opens a remote session on an Appium server.
type SessionOpener interface {
	Open(serverURL string, caps Capabilities) (*Client, error)
}

// RemoteOpener opens sessions over HTTP.
type RemoteOpener struct {
	HTTPClient *http.Client // optional
}

// Open connects a new Client to serverURL.
func (o RemoteOpener) Open(serverURL string, caps Capabilities) (*Client, error) {
	var opts []ClientOption
	if o.HTTPClient != nil {
		opts = append(opts, WithHTTPClient(o.HTTPClient))
	}
	c := NewClient(serverURL, opts...)
	if err := c.Connect(caps); err != nil {
		return nil, err
	}
	return c, nil
}

// Provider creates and releases one Appium session from configuration.
// It is not safe for concurrent use.
type Provider struct {
	cfg    ConfigSource
	opener SessionOpener
	life   *core.Lifecycle[*Client]
}

var _ core.Provider[*Client] = (*Provider)(nil)

type options struct {
	opener SessionOpener
	log    *zap.Logger
}

// Option configures a Provider.
type Option func(*options)

// WithOpener replaces the remote-session collaborator.
func WithOpener(o SessionOpener) Option {
	return func(opts *options) { opts.opener = o }
}

// WithLogger sets the logger. Defaults to the process logger.
func WithLogger(l *zap.Logger) Option {
	return func(opts *options) { opts.log = l }
}

// NewProvider creates a mobile provider reading from cfg.
func NewProvider(cfg ConfigSource, opts ...Option) *Provider {
	o := options{opener: RemoteOpener{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Named("mobile")
	}
	return &Provider{
		cfg:    cfg,
		opener: o.opener,
		life:   core.NewLifecycle[*Client]("mobile", o.log),
	}
}

// ResolveServerURL reads MOBILE.appium_server.
func (p *Provider) ResolveServerURL() (string, error) {
	return core.CallValue(p.life.Logger(), "resolve appium server url", p.cfg.MobileServerURL)
}

// ResolveCapabilities reads MOBILE.desired_capabilities.
func (p *Provider) ResolveCapabilities() (map[string]interface{}, error) {
	return core.CallValue(p.life.Logger(), "resolve desired capabilities", p.cfg.MobileCapabilities)
}

// Create opens a remote session. A failed attempt is final: nothing is
// retried and no handle is kept.
func (p *Provider) Create() (*Client, error) {
	if p.life.Active() {
		return nil, core.ErrSessionActive.WithDetails(map[string]interface{}{"provider": "mobile"})
	}

	serverURL, err := p.ResolveServerURL()
	if err != nil {
		p.life.Reset()
		return nil, err
	}
	raw, err := p.ResolveCapabilities()
	if err != nil {
		p.life.Reset()
		return nil, err
	}
	caps := UiAutomator2Capabilities(raw)

	client, err := core.CallValue(p.life.Logger(), "create mobile driver", func() (*Client, error) {
		c, err := p.opener.Open(serverURL, caps)
		if err != nil {
			return nil, classify(err, serverURL)
		}
		if c == nil {
			return nil, core.ErrUnexpectedDriver.
				WithMessage("session opener returned no client").
				WithDetails(map[string]interface{}{"server_url": serverURL})
		}
		return c, nil
	}, zap.String("server_url", serverURL), zap.Any("capabilities", map[string]interface{}(caps)))
	if err != nil {
		p.life.Reset()
		return nil, err
	}

	if err := p.life.Set(client); err != nil {
		return nil, err
	}
	p.life.Logger().Info("mobile session ready",
		zap.String("session_id", client.SessionID()),
		zap.String("platform", client.Platform()))
	return client, nil
}

// Quit releases the session. Safe to call any number of times.
func (p *Provider) Quit() error {
	return p.life.Quit()
}

// State returns the lifecycle state.
func (p *Provider) State() core.State {
	return p.life.State()
}

// Handle returns the live client, if any.
func (p *Provider) Handle() (*Client, bool) {
	return p.life.Handle()
}

// classify maps a collaborator fault onto the error taxonomy. Errors that
// are already classified pass through; the original error stays reachable
// through errors.As.
func classify(err error, serverURL string) error {
	var execErr *core.ExecutionError
	if errors.As(err, &execErr) {
		return err
	}

	details := map[string]interface{}{"server_url": serverURL}

	var wdErr *Error
	if errors.As(err, &wdErr) {
		if wdErr.Code == codeSessionNotCreated {
			return core.ErrSessionNotCreated.WithCause(err).WithDetails(details)
		}
		return core.ErrDriverError.WithCause(err).WithDetails(details)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) || errors.Is(err, ErrMalformedResponse) {
		return core.ErrDriverError.WithCause(err).WithDetails(details)
	}

	return core.ErrUnexpectedDriver.WithCause(err).WithDetails(details)
}
