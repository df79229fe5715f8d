package platform

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

var ErrUnknown = errors.New("unknown platform")

// Platform is a host or target platform the generator knows how to drive
type Platform uint8

const (
	Linux Platform = iota
	Darwin
	MSVC
	AIX
	Fuchsia
	FreeBSD
	MinGW
)

var names = [...]string{
	Linux:   "linux",
	Darwin:  "darwin",
	MSVC:    "msvc",
	AIX:     "aix",
	Fuchsia: "fuchsia",
	FreeBSD: "freebsd",
	MinGW:   "mingw",
}

// All returns every known platform in declaration order
func All() []Platform {
	return []Platform{Linux, Darwin, MSVC, AIX, Fuchsia, FreeBSD, MinGW}
}

func Names() []string {
	s := make([]string, 0, len(names))
	for _, p := range All() {
		s = append(s, p.String())
	}
	return s
}

func (p Platform) String() string {
	if int(p) < len(names) {
		return names[p]
	}
	return fmt.Sprintf("Platform(%d)", uint8(p))
}

// Parse resolves an explicit platform name such as "linux" or "msvc"
func Parse(s string) (Platform, error) {
	for _, p := range All() {
		if names[p] == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w %q, known platforms: %s", ErrUnknown, s, strings.Join(Names(), ", "))
}

// Host maps the running GOOS onto a platform.
func Host() (Platform, error) {
	return fromGOOS(runtime.GOOS)
}

func fromGOOS(goos string) (Platform, error) {
	switch goos {
	case "linux":
		return Linux, nil
	case "darwin":
		return Darwin, nil
	case "windows":
		return MSVC, nil
	case "aix":
		return AIX, nil
	case "freebsd":
		return FreeBSD, nil
	}
	return 0, fmt.Errorf("%w: cannot map host %q, pass --platform", ErrUnknown, goos)
}

func (p Platform) IsLinux() bool   { return p == Linux }
func (p Platform) IsDarwin() bool  { return p == Darwin }
func (p Platform) IsMSVC() bool    { return p == MSVC }
func (p Platform) IsMinGW() bool   { return p == MinGW }
func (p Platform) IsWindows() bool { return p == MSVC || p == MinGW }
func (p Platform) IsAIX() bool     { return p == AIX }

// IsPosix excludes fuchsia and mingw.
func (p Platform) IsPosix() bool {
	switch p {
	case Linux, FreeBSD, Darwin, AIX:
		return true
	}
	return false
}

// WindowsTargetArch returns "x64" or "x86". The Platform variable set by
// vcvarsall.bat wins over the host architecture.
func WindowsTargetArch(lookupEnv func(string) (string, bool), goarch string) string {
	if arch, ok := lookupEnv("Platform"); ok && (arch == "x64" || arch == "x86") {
		return arch
	}
	switch strings.ToLower(goarch) {
	case "amd64", "x86_64":
		return "x64"
	}
	return "x86"
}
