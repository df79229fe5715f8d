package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/qobs-build/bootgen/internal/msg"
	"golang.org/x/sync/errgroup"
)

const (
	ExecutableDir = "/data/local/tmp"
	BinDir        = ExecutableDir + "/bin"
	FrameworkDir  = ExecutableDir + "/framework"
	JarName       = "chromium_commands.jar"

	// javaLibDir holds dexed jars inside the output directory
	javaLibDir  = "lib.java"
	hostJarName = "chromium_commands.dex.jar"
)

var (
	ErrUserBuild   = errors.New("chromium_commands requires a userdebug build")
	ErrJarNotFound = errors.New("chromium_commands jar not found, build chromium_commands first")
)

// Commands maps each installed command to its Java main class
var Commands = map[string]string{
	"unzip": "org.chromium.android.commands.unzip.Unzip",
}

func commandNames() []string {
	return slices.Sorted(maps.Keys(Commands))
}

// WrapperScript is the shell script that launches mainClass through app_process
func WrapperScript(mainClass string) string {
	return fmt.Sprintf(`#!/system/bin/sh
base=%s
export CLASSPATH=$base/framework/%s
exec app_process $base/bin %s $@
`, ExecutableDir, JarName, mainClass)
}

// HostJarPath is where the build places the dexed commands jar
func HostJarPath(outDir string) string {
	return filepath.Join(outDir, javaLibDir, hostJarName)
}

func installedPaths() []string {
	var paths []string
	for _, name := range commandNames() {
		paths = append(paths, path.Join(BinDir, name))
	}
	return append(paths, path.Join(FrameworkDir, JarName))
}

// Installed reports whether every command wrapper and the jar are on d
func Installed(ctx context.Context, d Device) (bool, error) {
	return d.PathsExist(ctx, installedPaths()...)
}

// Install copies the command wrappers and the jar built in outDir to d
func Install(ctx context.Context, d Device, outDir string) error {
	user, err := d.IsUserBuild(ctx)
	if err != nil {
		return err
	}
	if user {
		return fmt.Errorf("%w (device %s)", ErrUserBuild, d.Serial())
	}

	jar := HostJarPath(outDir)
	if _, err := os.Stat(jar); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrJarNotFound, jar)
		}
		return err
	}

	if _, err := d.RunShellCommand(ctx, "mkdir", "-p", BinDir, FrameworkDir); err != nil {
		return err
	}
	for _, name := range commandNames() {
		wrapper := path.Join(BinDir, name)
		if err := d.WriteFile(ctx, wrapper, WrapperScript(Commands[name])); err != nil {
			return err
		}
		if _, err := d.RunShellCommand(ctx, "chmod", "755", wrapper); err != nil {
			return err
		}
	}

	return d.Push(ctx, jar, path.Join(FrameworkDir, JarName))
}

// InstallAll installs on every device concurrently and joins the failures
func InstallAll(ctx context.Context, devices []Device, outDir string) error {
	errs := make([]error, len(devices))

	// debug lines from adb calls would break up the redrawn bar
	w := msg.Out
	if msg.Verbose {
		w = io.Discard
	}
	pb := msg.NewProgressBar(len(devices), 2, "devices", w)

	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())
	for i, d := range devices {
		eg.Go(func() error {
			if err := Install(ctx, d, outDir); err != nil {
				errs[i] = fmt.Errorf("%s: %w", d.Serial(), err)
			}
			pb.Done(errs[i] == nil)
			return nil
		})
	}
	eg.Wait()
	pb.Finish()

	return errors.Join(errs...)
}
