// Package device lists Android devices visible to ADB, so a MOBILE
// configuration can be checked against what is actually attached.
package device

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// States reported by "adb devices".
const (
	StateDevice       = "device"
	StateOffline      = "offline"
	StateUnauthorized = "unauthorized"
)

// Device is one line of "adb devices -l".
type Device struct {
	Serial string
	State  string
	Model  string // empty for offline or unauthorized devices
}

// Ready reports whether the device accepts commands.
func (d Device) Ready() bool {
	return d.State == StateDevice
}

// IsEmulator reports whether the serial names a local emulator.
func (d Device) IsEmulator() bool {
	return strings.HasPrefix(d.Serial, "emulator-")
}

// ADB runs adb commands.
type ADB struct {
	Path string // defaults to "adb" from $PATH

	// Run executes the command and returns its stdout. Defaults to os/exec.
	Run func(name string, args ...string) (string, error)
}

// List returns every device adb knows about, ready or not.
func (a ADB) List() ([]Device, error) {
	out, err := a.adb("devices", "-l")
	if err != nil {
		return nil, err
	}
	return parseDevices(out), nil
}

// FirstReady returns the first device that accepts commands.
func (a ADB) FirstReady() (Device, error) {
	devices, err := a.List()
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if d.Ready() {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("no connected devices found")
}

func (a ADB) adb(args ...string) (string, error) {
	path := a.Path
	if path == "" {
		p, err := findADB()
		if err != nil {
			return "", err
		}
		path = p
	}
	run := a.Run
	if run == nil {
		run = execRun
	}
	out, err := run(path, args...)
	if err != nil {
		return "", fmt.Errorf("adb %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

func parseDevices(out string) []Device {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") || strings.HasPrefix(line, "*") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		d := Device{Serial: parts[0], State: parts[1]}
		for _, attr := range parts[2:] {
			if model, ok := strings.CutPrefix(attr, "model:"); ok {
				d.Model = strings.ReplaceAll(model, "_", " ")
			}
		}
		devices = append(devices, d)
	}
	return devices
}

func execRun(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := stderr.String()
		if errMsg == "" {
			errMsg = stdout.String()
		}
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(errMsg))
	}
	return stdout.String(), nil
}

// findADB locates the ADB binary.
func findADB() (string, error) {
	if path, err := exec.LookPath("adb"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("adb not found in PATH; ensure Android SDK platform-tools are installed")
}
