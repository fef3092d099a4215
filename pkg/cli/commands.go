package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/driverkit/pkg/driver/appium"
	"github.com/devicelab-dev/driverkit/pkg/driver/web"
	"github.com/devicelab-dev/driverkit/pkg/page"
)

func (a *App) checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Load the configuration and report every setting",
		Description: `Load the configuration document and read every WEB and MOBILE setting.
Missing or invalid settings are listed; the command fails if any is found.

Examples:
  driverkit check
  driverkit --config config/config.yaml check`,
		Action: a.runCheck,
	}
}

func (a *App) webCommand() *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Open a browser session from the WEB section, then quit it",
		Description: `Resolve WEB.browser and its driver binary, open a local session and
quit it again. With --url the named WEB.urls entry is opened and its title
printed.

Examples:
  driverkit web
  driverkit web --url login`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "Name of a WEB.urls entry to open",
			},
		},
		Action: a.runWeb,
	}
}

func (a *App) mobileCommand() *cli.Command {
	return &cli.Command{
		Name:  "mobile",
		Usage: "Open an Appium session from the MOBILE section, then quit it",
		Description: `Connect to MOBILE.appium_server with MOBILE.desired_capabilities,
print the session details and quit the session.

Examples:
  driverkit mobile
  driverkit -v mobile`,
		Action: a.runMobile,
	}
}

func (a *App) devicesCommand() *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "List Android devices visible to adb",
		Description: `List the devices adb reports, so MOBILE.desired_capabilities can name
one of them (appium:udid).

Examples:
  driverkit devices`,
		Action: a.runDevices,
	}
}

func (a *App) runCheck(c *cli.Context) error {
	p := newPrinter(a.Out)

	store, err := a.loadConfig(c)
	if err != nil {
		p.fail("configuration", err)
		return err
	}
	p.header("Configuration " + store.Path())

	failed := 0
	report := func(key, value string, err error) {
		if err != nil {
			failed++
			p.fail(key, err)
			return
		}
		p.ok(key, value)
	}

	browser, err := store.WebBrowser()
	if err == nil {
		_, err = web.ParseBrowser(browser)
	}
	report("WEB.browser", browser, err)

	urls, err := store.WebURLs()
	report("WEB.urls", strings.Join(sortedKeys(urls), ", "), err)

	p.info("WEB.headless", fmt.Sprint(store.WebHeadless()))
	if args := store.WebArguments(); len(args) > 0 {
		p.info("WEB.arguments", strings.Join(args, " "))
	}

	serverURL, err := store.MobileServerURL()
	report("MOBILE.appium_server", serverURL, err)

	caps, err := store.MobileCapabilities()
	report("MOBILE.desired_capabilities", strings.Join(sortedKeys(caps), ", "), err)

	if failed > 0 {
		return fmt.Errorf("%d setting(s) missing or invalid", failed)
	}
	return nil
}

func (a *App) runWeb(c *cli.Context) (err error) {
	p := newPrinter(a.Out)

	store, err := a.loadConfig(c)
	if err != nil {
		return err
	}

	provider := web.NewProvider(store, a.WebOptions...)
	wd, err := provider.Create()
	if err != nil {
		p.fail("web session", err)
		return err
	}
	defer func() {
		if quitErr := provider.Quit(); quitErr != nil {
			p.fail("quit", quitErr)
			err = errors.Join(err, quitErr)
			return
		}
		p.ok("quit", "session released")
	}()
	p.ok("web session", fmt.Sprintf("%s %s", provider.Browser().DisplayName(), wd.SessionID()))

	name := c.String("url")
	if name == "" {
		return nil
	}
	url, err := store.WebURL(name)
	if err != nil {
		p.fail("WEB.urls."+name, err)
		return err
	}

	wp := page.NewWeb(wd)
	if err := wp.OpenURL(url); err != nil {
		p.fail("open "+url, err)
		return err
	}
	title, err := wp.Title()
	if err != nil {
		p.fail("title", err)
		return err
	}
	p.ok("open "+url, title)
	return nil
}

func (a *App) runMobile(c *cli.Context) (err error) {
	p := newPrinter(a.Out)

	store, err := a.loadConfig(c)
	if err != nil {
		return err
	}

	provider := appium.NewProvider(store, a.MobileOptions...)
	client, err := provider.Create()
	if err != nil {
		p.fail("mobile session", err)
		return err
	}
	defer func() {
		if quitErr := provider.Quit(); quitErr != nil {
			p.fail("quit", quitErr)
			err = errors.Join(err, quitErr)
			return
		}
		p.ok("quit", "session released")
	}()

	w, h := client.ScreenSize()
	p.ok("mobile session", client.SessionID())
	p.info("server", client.ServerURL())
	p.info("platform", client.Platform())
	p.info("screen", fmt.Sprintf("%dx%d", w, h))
	return nil
}

func (a *App) runDevices(c *cli.Context) error {
	p := newPrinter(a.Out)

	devices, err := a.ADB.List()
	if err != nil {
		p.fail("adb", err)
		return err
	}
	if len(devices) == 0 {
		p.info("adb", "no devices attached")
		return nil
	}
	for _, d := range devices {
		desc := d.State
		if d.Model != "" {
			desc += " " + d.Model
		}
		if d.IsEmulator() {
			desc += " (emulator)"
		}
		if d.Ready() {
			p.ok(d.Serial, desc)
		} else {
			p.fail(d.Serial, errors.New(desc))
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
