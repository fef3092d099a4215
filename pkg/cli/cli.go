// Package cli provides the command-line interface for driverkit.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/driverkit/pkg/config"
	"github.com/devicelab-dev/driverkit/pkg/device"
	"github.com/devicelab-dev/driverkit/pkg/driver/appium"
	"github.com/devicelab-dev/driverkit/pkg/driver/web"
	"github.com/devicelab-dev/driverkit/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Configuration document (JSON or YAML); defaults to $DRIVERKIT_CONFIG, then discovery in the working directory",
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Also write JSON logs to this file (rotated)",
		EnvVars: []string{"DRIVERKIT_LOG_FILE"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "Console log level (debug, info, warn, error)",
		Value:   "warn",
		EnvVars: []string{"DRIVERKIT_LOG_LEVEL"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable verbose logging",
		EnvVars: []string{"DRIVERKIT_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// App holds the streams and collaborator overrides the commands use.
type App struct {
	Out io.Writer
	Err io.Writer

	// Dir is searched for a configuration document when neither --config
	// nor $DRIVERKIT_CONFIG is given. Defaults to ".".
	Dir string

	WebOptions    []web.Option
	MobileOptions []appium.Option
	ADB           device.ADB
}

// New builds the urfave/cli application.
func (a *App) New() *cli.App {
	if a.Out == nil {
		a.Out = os.Stdout
	}
	if a.Err == nil {
		a.Err = os.Stderr
	}
	return &cli.App{
		Name:    "driverkit",
		Usage:   "Create and release browser and Appium sessions from configuration",
		Version: Version,
		Description: `driverkit reads the WEB and MOBILE sections of a configuration document
and opens local browser sessions or remote Appium sessions with them.

Examples:
  driverkit check
  driverkit --config config/staging.yaml web --url login
  driverkit -v mobile
  driverkit devices`,
		Flags:     GlobalFlags,
		Writer:    a.Out,
		ErrWriter: a.Err,
		Before:    a.setup,
		After: func(*cli.Context) error {
			logger.Close()
			return nil
		},
		Commands: []*cli.Command{
			a.checkCommand(),
			a.webCommand(),
			a.mobileCommand(),
			a.devicesCommand(),
		},
	}
}

func (a *App) setup(c *cli.Context) error {
	if c.Bool("no-ansi") || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	level := c.String("log-level")
	if c.Bool("verbose") {
		level = "debug"
	}
	if _, err := logger.Init(logger.Options{
		Level:   level,
		Console: a.Err,
		LogFile: c.String("log-file"),
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	return nil
}

func (a *App) loadConfig(c *cli.Context) (*config.Store, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	if path := config.DefaultPath(); path != config.DefaultFile {
		return config.Load(path)
	}
	dir := a.Dir
	if dir == "" {
		dir = "."
	}
	return config.Discover(dir)
}

// Execute runs the CLI.
func Execute() {
	app := (&App{}).New()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
