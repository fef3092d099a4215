// Package fixture wires providers into Go tests: the session is created
// once and always released when the test ends.
package fixture

import (
	"testing"

	"github.com/tebeka/selenium"

	"github.com/devicelab-dev/driverkit/pkg/core"
	"github.com/devicelab-dev/driverkit/pkg/driver/appium"
)

// Session creates a session from p and registers its release with
// t.Cleanup. A setup failure stops the test; a teardown failure is reported
// with t.Errorf so an earlier failure stays visible.
func Session[H core.Handle](t testing.TB, p core.Provider[H]) H {
	t.Helper()

	h, err := p.Create()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	t.Cleanup(func() {
		if err := p.Quit(); err != nil {
			t.Errorf("quit session: %v", err)
		}
	})
	return h
}

// Web returns a browser session for the duration of the test.
func Web(t testing.TB, p core.Provider[selenium.WebDriver]) selenium.WebDriver {
	t.Helper()
	return Session(t, p)
}

// Mobile returns an Appium session for the duration of the test.
func Mobile(t testing.TB, p core.Provider[*appium.Client]) *appium.Client {
	t.Helper()
	return Session(t, p)
}
