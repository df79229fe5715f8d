package device

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/qobs-build/bootgen/internal/msg"
)

// Device is an attached Android device
type Device interface {
	Serial() string
	IsUserBuild(ctx context.Context) (bool, error)
	RunShellCommand(ctx context.Context, args ...string) (string, error)
	// WriteFile replaces the file at remote with content
	WriteFile(ctx context.Context, remote, content string) error
	Push(ctx context.Context, local, remote string) error
	// PathsExist reports whether every path exists on the device
	PathsExist(ctx context.Context, paths ...string) (bool, error)
}

// Runner runs a host command and returns its stdout
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, s)
		}
		return out, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// AdbPath is the adb binary, taken from $ADB when set
func AdbPath() string {
	if adb, ok := os.LookupEnv("ADB"); ok && adb != "" {
		return adb
	}
	return "adb"
}

// Adb talks to one device through the adb binary
type Adb struct {
	serial string
	bin    string
	run    Runner
	// stagingDir receives files before they are moved into place
	stagingDir string
}

func NewAdb(serial string) *Adb {
	return newAdb(serial, AdbPath(), execRunner)
}

func newAdb(serial, bin string, run Runner) *Adb {
	return &Adb{serial: serial, bin: bin, run: run, stagingDir: ExecutableDir}
}

func (a *Adb) Serial() string { return a.serial }

func (a *Adb) adb(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"-s", a.serial}, args...)
	msg.Debug("%s %s", a.bin, strings.Join(full, " "))
	out, err := a.run(ctx, a.bin, full...)
	if err != nil {
		return out, fmt.Errorf("device %s: %w", a.serial, err)
	}
	return out, nil
}

func (a *Adb) RunShellCommand(ctx context.Context, args ...string) (string, error) {
	out, err := a.adb(ctx, append([]string{"shell"}, args...)...)
	return string(out), err
}

func (a *Adb) IsUserBuild(ctx context.Context) (bool, error) {
	out, err := a.RunShellCommand(ctx, "getprop", "ro.build.type")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "user", nil
}

func (a *Adb) Push(ctx context.Context, local, remote string) error {
	_, err := a.adb(ctx, "push", local, remote)
	return err
}

func (a *Adb) WriteFile(ctx context.Context, remote, content string) error {
	f, err := os.CreateTemp("", "bootgen-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	staged := path.Join(a.stagingDir, "bootgen-"+uuid.NewString()+".tmp")
	if err := a.Push(ctx, f.Name(), staged); err != nil {
		return err
	}
	_, err = a.RunShellCommand(ctx, "mv", staged, remote)
	return err
}

const existsMarker = "exists"

func (a *Adb) PathsExist(ctx context.Context, paths ...string) (bool, error) {
	if len(paths) == 0 {
		return true, nil
	}
	tests := make([]string, len(paths))
	for i, p := range paths {
		tests[i] = "test -e " + shellQuote(p)
	}
	// adb forwards the remote exit status, so the script must exit 0 for missing paths
	out, err := a.RunShellCommand(ctx, "if "+strings.Join(tests, " && ")+"; then echo "+existsMarker+"; fi")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == existsMarker, nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

var ErrNoDevices = errors.New("no devices attached")

// ListDevices returns the serials of every device adb reports as ready
func ListDevices(ctx context.Context) ([]string, error) {
	out, err := execRunner(ctx, AdbPath(), "devices")
	if err != nil {
		return nil, err
	}
	return parseDevices(out), nil
}

func parseDevices(out []byte) []string {
	var serials []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 2 && fields[1] == "device" {
			serials = append(serials, fields[0])
		}
	}
	return serials
}
