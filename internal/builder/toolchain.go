package builder

import (
	"os"
	"runtime"
	"strings"

	"github.com/qobs-build/bootgen/internal/platform"
)

// LookupEnv has the signature of os.LookupEnv
type LookupEnv func(key string) (string, bool)

// Toolchain holds the commands written into the build.ninja header
type Toolchain struct {
	CC, CXX, AR, LD string
}

func envOr(lookup LookupEnv, key, fallback string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return fallback
}

func envFields(lookup LookupEnv, key string) []string {
	v, _ := lookup(key)
	return strings.Fields(v)
}

// ResolveToolchain picks the platform defaults, each overridable from the environment
func ResolveToolchain(p platform.Platform, lookup LookupEnv) Toolchain {
	switch {
	case p.IsMSVC():
		return Toolchain{
			CC:  envOr(lookup, "CC", "cl.exe"),
			CXX: envOr(lookup, "CXX", "cl.exe"),
			LD:  envOr(lookup, "LD", "link.exe"),
			AR:  envOr(lookup, "AR", "lib.exe"),
		}
	case p.IsAIX():
		cxx := envOr(lookup, "CXX", "c++")
		return Toolchain{
			CC:  envOr(lookup, "CC", "gcc"),
			CXX: cxx,
			LD:  envOr(lookup, "LD", cxx),
			AR:  envOr(lookup, "AR", "ar -X64"),
		}
	default:
		cxx := envOr(lookup, "CXX", "c++")
		return Toolchain{
			CC:  envOr(lookup, "CC", "cc"),
			CXX: cxx,
			LD:  cxx,
			AR:  envOr(lookup, "AR", "ar"),
		}
	}
}

// Flags are the global flag sets shared by every statement of a build.ninja
type Flags struct {
	Cflags   []string
	CflagsCC []string
	Arflags  []string
	Ldflags  []string
	Libflags []string
	// Libs are system libraries, emitted as solibs on link statements
	Libs []string
}

var posixCflags = []string{
	"-D_FILE_OFFSET_BITS=64",
	"-D__STDC_CONSTANT_MACROS", "-D__STDC_FORMAT_MACROS",
	"-pthread",
	"-pipe",
	"-fno-exceptions",
	"-fno-rtti",
	"-fdiagnostics-color",
}

var msvcCflags = []string{
	"/DNOMINMAX",
	"/DUNICODE",
	"/DWIN32_LEAN_AND_MEAN",
	"/DWINVER=0x0A00",
	"/D_CRT_SECURE_NO_DEPRECATE",
	"/D_SCL_SECURE_NO_DEPRECATE",
	"/D_UNICODE",
	"/D_WIN32_WINNT=0x0A00",
	"/FS",
	"/W4",
	"/WX",
	"/Zi",
	"/wd4099",
	"/wd4100",
	"/wd4127",
	"/wd4244",
	"/wd4267",
	"/wd4505",
	"/wd4838",
	"/wd4996",
}

var windowsLibs = []string{
	"advapi32.lib",
	"dbghelp.lib",
	"kernel32.lib",
	"ole32.lib",
	"shell32.lib",
	"user32.lib",
	"userenv.lib",
	"version.lib",
	"winmm.lib",
	"ws2_32.lib",
	"Shlwapi.lib",
}

const macMinVersionFlag = "-mmacosx-version-min=10.9"

// DeriveFlags computes the flag sets for the target platform, seeded from
// CFLAGS, CXXFLAGS, ARFLAGS, LDFLAGS and LIBFLAGS.
func DeriveFlags(p platform.Platform, opts Options, lookup LookupEnv, goarch string) Flags {
	f := Flags{
		Cflags:   envFields(lookup, "CFLAGS"),
		CflagsCC: envFields(lookup, "CXXFLAGS"),
		Arflags:  envFields(lookup, "ARFLAGS"),
		Ldflags:  envFields(lookup, "LDFLAGS"),
		Libflags: envFields(lookup, "LIBFLAGS"),
	}

	if p.IsMSVC() {
		deriveMSVCFlags(&f, opts, lookup, goarch)
	} else {
		derivePosixFlags(&f, p, opts)
	}

	if p.IsWindows() {
		f.Libs = append(f.Libs, windowsLibs...)
	}
	return f
}

func derivePosixFlags(f *Flags, p platform.Platform, opts Options) {
	if opts.Debug {
		f.Cflags = append(f.Cflags, "-O0", "-g")
	} else {
		f.Cflags = append(f.Cflags, "-DNDEBUG", "-O3")
		if opts.NoStrip != nil && *opts.NoStrip {
			f.Cflags = append(f.Cflags, "-g")
		}
		f.Ldflags = append(f.Ldflags, "-O3")

		// one section per function and data item so the linker can drop unused ones
		f.Cflags = append(f.Cflags, "-fdata-sections", "-ffunction-sections")
		f.Ldflags = append(f.Ldflags, "-fdata-sections", "-ffunction-sections")
		switch {
		case p.IsDarwin():
			f.Ldflags = append(f.Ldflags, "-Wl,-dead_strip")
		case !p.IsAIX():
			// aix collects garbage sections by default
			f.Ldflags = append(f.Ldflags, "-Wl,--gc-sections")
		}

		if opts.NoStrip == nil {
			switch {
			case p.IsDarwin():
				f.Ldflags = append(f.Ldflags, "-Wl,-S")
			case p.IsAIX():
				f.Ldflags = append(f.Ldflags, "-Wl,-s")
			default:
				f.Ldflags = append(f.Ldflags, "-Wl,-strip-all")
			}
		}

		if opts.UseICF && !p.IsDarwin() {
			f.Ldflags = append(f.Ldflags, "-Wl,--icf=all")
		}
	}

	f.Cflags = append(f.Cflags, posixCflags...)
	f.CflagsCC = append(f.CflagsCC, "-std=c++14", "-Wno-narrowing")

	switch {
	case p.IsLinux():
		f.Ldflags = append(f.Ldflags, "-static-libstdc++", "-Wl,--as-needed")
		// needed by libc++
		f.Libs = append(f.Libs, "-ldl", "-lrt")
	case p.IsDarwin():
		f.Cflags = append(f.Cflags, macMinVersionFlag)
		f.Ldflags = append(f.Ldflags, macMinVersionFlag)
	case p.IsAIX():
		f.CflagsCC = append(f.CflagsCC, "-maix64")
		f.Ldflags = append(f.Ldflags, "-maix64")
	}

	if p.IsPosix() && !p.IsDarwin() {
		f.Ldflags = append(f.Ldflags, "-pthread")
	}

	if opts.UseLTO {
		f.Cflags = append(f.Cflags, "-flto", "-fwhole-program-vtables")
		f.Ldflags = append(f.Ldflags, "-flto", "-fwhole-program-vtables")
	}
}

func deriveMSVCFlags(f *Flags, opts Options, lookup LookupEnv, goarch string) {
	if !opts.Debug {
		f.Cflags = append(f.Cflags, "/O2", "/DNDEBUG", "/GL")
		f.Libflags = append(f.Libflags, "/LTCG")
		f.Ldflags = append(f.Ldflags, "/LTCG", "/OPT:REF", "/OPT:ICF")
	}

	f.Cflags = append(f.Cflags, msvcCflags...)
	f.CflagsCC = append(f.CflagsCC, "/GR-", "/D_HAS_EXCEPTIONS=0")

	arch := platform.WindowsTargetArch(lookup, goarch)
	f.Ldflags = append(f.Ldflags, "/DEBUG", "/MACHINE:"+arch)
}

// ProcessEnv resolves toolchain and flags from the real environment.
func ProcessEnv(p platform.Platform, opts Options) (Toolchain, Flags) {
	return ResolveToolchain(p, os.LookupEnv), DeriveFlags(p, opts, os.LookupEnv, runtime.GOARCH)
}
