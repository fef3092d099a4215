package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-homedir"
)

const envHome = "DRIVERKIT_HOME"

var (
	homeMu  sync.Mutex
	homeDir string
)

// Home returns the driverkit home directory, where driver binaries live
// under drivers/<platform>. The first resolution is cached.
//
// Resolution order:
//  1. $DRIVERKIT_HOME
//  2. <prefix> when the running binary is <prefix>/bin/driverkit
//  3. ~/.driverkit
//  4. the working directory
func Home() string {
	homeMu.Lock()
	defer homeMu.Unlock()

	if homeDir == "" {
		homeDir = resolveHome(os.Getenv, os.Executable, homedir.Dir)
	}
	return homeDir
}

// DriversDir returns <home>/drivers/<platform>.
func DriversDir(platform string) string {
	return filepath.Join(Home(), "drivers", platform)
}

// ResetHome forgets the cached home directory.
func ResetHome() {
	homeMu.Lock()
	defer homeMu.Unlock()
	homeDir = ""
}

func resolveHome(getenv func(string) string, executable, userHome func() (string, error)) string {
	if dir := getenv(envHome); dir != "" {
		return dir
	}

	if exe, err := executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		if bin := filepath.Dir(exe); filepath.Base(bin) == "bin" {
			return filepath.Dir(bin)
		}
	}

	if home, err := userHome(); err == nil && home != "" {
		return filepath.Join(home, ".driverkit")
	}

	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}
