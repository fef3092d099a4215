package appium_test

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/devicelab-dev/driverkit/pkg/core"
	"github.com/devicelab-dev/driverkit/pkg/driver/appium"
	"github.com/devicelab-dev/driverkit/pkg/driver/mock"
)

type mobileConfig struct {
	url     string
	urlErr  error
	caps    map[string]interface{}
	capsErr error
}

func (c mobileConfig) MobileServerURL() (string, error) { return c.url, c.urlErr }

func (c mobileConfig) MobileCapabilities() (map[string]interface{}, error) {
	return c.caps, c.capsErr
}

var androidConfig = mobileConfig{
	url:  "http://localhost:4723",
	caps: map[string]interface{}{"platformName": "Android"},
}

func newProvider(t *testing.T, cfg mobileConfig, opener appium.SessionOpener) (*appium.Provider, *observer.ObservedLogs) {
	t.Helper()
	obs, logs := observer.New(zapcore.DebugLevel)
	return appium.NewProvider(cfg, appium.WithOpener(opener), appium.WithLogger(zap.New(obs))), logs
}

func TestProvider_CreatePassesConfiguredValues(t *testing.T) {
	server := mock.NewAppiumServer()
	defer server.Close()
	opener := &mock.Opener{Server: server}
	p, _ := newProvider(t, androidConfig, opener)

	client, err := p.Create()
	require.NoError(t, err)
	require.NotNil(t, client)

	require.Len(t, opener.Calls, 1)
	call := opener.Calls[0]
	assert.Equal(t, "http://localhost:4723", call.ServerURL)
	assert.Equal(t, appium.Capabilities{
		"platformName":          "Android",
		"appium:automationName": "UiAutomator2",
	}, call.Caps)

	req, ok := server.Last("POST", "/session")
	require.True(t, ok)
	always := req.Body["capabilities"].(map[string]interface{})["alwaysMatch"].(map[string]interface{})
	assert.Equal(t, "Android", always["platformName"])

	assert.Equal(t, server.SessionID(), client.SessionID())
	assert.Equal(t, "android", client.Platform())
	require.NoError(t, p.Quit())
}

func TestProvider_CreateQuitRoundTrip(t *testing.T) {
	server := mock.NewAppiumServer()
	defer server.Close()
	p, logs := newProvider(t, androidConfig, &mock.Opener{Server: server})

	assert.Equal(t, core.StateUnconfigured, p.State())
	_, err := p.Create()
	require.NoError(t, err)
	assert.Equal(t, core.StateActive, p.State())
	_, ok := p.Handle()
	assert.True(t, ok)

	require.NoError(t, p.Quit())
	_, ok = p.Handle()
	assert.False(t, ok)
	assert.Equal(t, core.StateClosed, p.State())
	assert.Equal(t, 1, server.Count("DELETE", "/session/"+server.SessionID()))

	require.NoError(t, p.Quit())
	assert.Equal(t, 1, server.Count("DELETE", "/session/"+server.SessionID()), "second quit is a no-op")

	assert.Equal(t, 1, logs.FilterMessage("mobile session ready").Len())
	assert.Equal(t, 1, logs.FilterMessage("quit driver succeeded").Len())
}

func TestProvider_QuitBeforeCreate(t *testing.T) {
	opener := &mock.Opener{}
	p, _ := newProvider(t, androidConfig, opener)

	require.NoError(t, p.Quit())
	assert.Empty(t, opener.Calls)
}

func TestProvider_SessionNotCreated(t *testing.T) {
	server := mock.NewAppiumServer()
	defer server.Close()
	server.FailCreate("session not created", "Could not find a connected Android device")
	p, logs := newProvider(t, androidConfig, &mock.Opener{Server: server})

	client, err := p.Create()
	assert.Nil(t, client)
	assert.ErrorIs(t, err, core.ErrSessionNotCreated)

	var wdErr *appium.Error
	require.ErrorAs(t, err, &wdErr)
	assert.Equal(t, "session not created", wdErr.Code)

	_, ok := p.Handle()
	assert.False(t, ok)
	assert.Equal(t, core.StateUnconfigured, p.State())

	failed := logs.FilterMessage("create mobile driver failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "http://localhost:4723", failed[0].ContextMap()["server_url"])
}

func TestProvider_OtherW3CErrorIsDriverError(t *testing.T) {
	server := mock.NewAppiumServer()
	defer server.Close()
	server.FailCreate("unknown error", "instrumentation process is not running")
	p, _ := newProvider(t, androidConfig, &mock.Opener{Server: server})

	_, err := p.Create()
	assert.ErrorIs(t, err, core.ErrDriverError)
	assert.NotErrorIs(t, err, core.ErrSessionNotCreated)
}

func TestProvider_TransportErrorIsDriverError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	cfg := mobileConfig{url: "http://" + addr, caps: map[string]interface{}{}}
	p, _ := newProvider(t, cfg, appium.RemoteOpener{})

	_, err = p.Create()
	assert.ErrorIs(t, err, core.ErrDriverError)
}

func TestProvider_UnexpectedError(t *testing.T) {
	p, _ := newProvider(t, androidConfig, &mock.Opener{Err: errors.New("boom")})

	_, err := p.Create()
	assert.ErrorIs(t, err, core.ErrUnexpectedDriver)
}

func TestProvider_ClassifiedErrorPassesThrough(t *testing.T) {
	classified := core.ErrSessionNotCreated.WithMessage("device offline")
	p, _ := newProvider(t, androidConfig, &mock.Opener{Err: classified})

	_, err := p.Create()
	assert.Same(t, classified, err)
}

func TestProvider_ConfigErrorsSkipOpener(t *testing.T) {
	missing := core.ErrConfigKeyMissing.WithDetails(map[string]interface{}{"section": "MOBILE", "key": "appium_server"})

	tests := []struct {
		name string
		cfg  mobileConfig
	}{
		{"server url", mobileConfig{urlErr: missing}},
		{"capabilities", mobileConfig{url: "http://localhost:4723", capsErr: missing}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := &mock.Opener{}
			p, _ := newProvider(t, tt.cfg, opener)

			_, err := p.Create()
			assert.ErrorIs(t, err, core.ErrConfigKeyMissing)
			assert.Empty(t, opener.Calls)
		})
	}
}

func TestProvider_SecondCreateRefused(t *testing.T) {
	server := mock.NewAppiumServer()
	defer server.Close()
	opener := &mock.Opener{Server: server}
	p, _ := newProvider(t, androidConfig, opener)

	first, err := p.Create()
	require.NoError(t, err)

	_, err = p.Create()
	assert.ErrorIs(t, err, core.ErrSessionActive)
	assert.Len(t, opener.Calls, 1)

	handle, _ := p.Handle()
	assert.Same(t, first, handle)
	require.NoError(t, p.Quit())
}

func TestProvider_TeardownFailureClearsHandle(t *testing.T) {
	server := mock.NewAppiumServer()
	defer server.Close()
	server.FailDelete("unknown error", "uiautomator2 server crashed")
	p, logs := newProvider(t, androidConfig, &mock.Opener{Server: server})

	_, err := p.Create()
	require.NoError(t, err)

	err = p.Quit()
	assert.ErrorIs(t, err, core.ErrDriverTeardown)
	assert.ErrorIs(t, err, core.ErrDriverError)
	_, ok := p.Handle()
	assert.False(t, ok)
	assert.Equal(t, core.StateClosed, p.State())
	assert.Equal(t, 1, logs.FilterMessage("quit driver failed").Len())
}

func TestRemoteOpener(t *testing.T) {
	server := mock.NewAppiumServer()
	defer server.Close()

	client, err := appium.RemoteOpener{}.Open(server.URL, appium.Capabilities{"platformName": "Android"})
	require.NoError(t, err)
	assert.Equal(t, server.URL, client.ServerURL())
	w, h := client.ScreenSize()
	assert.Equal(t, 1080, w)
	assert.Equal(t, 2400, h)
	require.NoError(t, client.Quit())
}
