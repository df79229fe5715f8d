package gen

import (
	"path"
	"path/filepath"
	"strings"
)

const (
	BuildFile = "build.ninja"
	Depfile   = BuildFile + ".d"
)

// Output is an emitted build.ninja together with its dependency file
type Output struct {
	BuildFile string
	Depfile   string
}

// Tools are the commands declared at the top of the build file
type Tools struct {
	CC, CXX, AR, LD string
}

// Vars are the flag lists shared by every statement
type Vars struct {
	IncludeDirs []string
	Cflags      []string
	CflagsCC    []string
	Arflags     []string
	Libflags    []string
	Ldflags     []string
	Solibs      []string
}

// Unit is one source file to compile together with its per-file additions
type Unit struct {
	Src         string
	Tool        string
	IncludeDirs []string
	Cflags      []string
	CflagsCC    []string
}

type NinjaGen struct {
	root                          string
	objExt, libExt, executableExt string
	vars                          Vars
	lines                         []string
}

// NewNinjaGen creates a generator; sources are referenced relative to root
func NewNinjaGen(root string, windows bool, vars Vars) *NinjaGen {
	g := &NinjaGen{root: root, vars: vars, objExt: ".o", libExt: ".a"}
	if windows {
		g.objExt, g.libExt, g.executableExt = ".obj", ".lib", ".exe"
	}
	return g
}

var ninjaPathEscaper = strings.NewReplacer("$", "$$", ":", "$:", " ", "$ ")

func quote(s string) string { return ninjaPathEscaper.Replace(s) }

const (
	posixShellSpecial   = " \t\n'\"\\$`*?[]{}()<>|&;#~!"
	windowsShellSpecial = " \t\n\"&|<>^%"
)

// shellQuote quotes arg for the shell ninja runs commands with on the host
func shellQuote(arg string, windows bool) string {
	if windows {
		if arg != "" && !strings.ContainsAny(arg, windowsShellSpecial) {
			return arg
		}
		return `"` + strings.ReplaceAll(arg, `"`, `\"`) + `"`
	}
	if arg != "" && !strings.ContainsAny(arg, posixShellSpecial) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// CommandLine joins args into the value of a rule's command variable: each
// argument is shell quoted, then $ is escaped for ninja
func CommandLine(windows bool, args ...string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg, windows)
	}
	return strings.ReplaceAll(strings.Join(quoted, " "), "$", "$$")
}

func (g *NinjaGen) objectFile(src string) string {
	return quote(strings.TrimSuffix(src, path.Ext(src)) + g.objExt)
}

func (g *NinjaGen) LibraryFile(name string) string    { return name + g.libExt }
func (g *NinjaGen) ExecutableFile(name string) string { return name + g.executableExt }

func (g *NinjaGen) addSource(u Unit) string {
	obj := g.objectFile(u.Src)

	includes := make([]string, 0, len(g.vars.IncludeDirs)+len(u.IncludeDirs))
	for _, dir := range g.vars.IncludeDirs {
		includes = append(includes, "-I"+quote(dir))
	}
	for _, dir := range u.IncludeDirs {
		includes = append(includes, "-I"+quote(dir))
	}

	g.lines = append(g.lines,
		"build "+obj+": "+u.Tool+" "+quote(filepath.Join(g.root, filepath.FromSlash(u.Src))),
		"  includes = "+strings.Join(includes, " "),
		"  cflags = "+join(g.vars.Cflags, u.Cflags),
		"  cflags_cc = "+join(g.vars.CflagsCC, u.CflagsCC),
	)
	return obj
}

// AddLibrary emits compile statements for every unit and an archive statement
func (g *NinjaGen) AddLibrary(name string, units []Unit) {
	objs := make([]string, 0, len(units))
	for _, u := range units {
		objs = append(objs, g.addSource(u))
	}

	g.lines = append(g.lines,
		"build "+g.LibraryFile(name)+": alink_thin "+strings.Join(objs, " "),
		"  arflags = "+strings.Join(g.vars.Arflags, " "),
		"  libflags = "+strings.Join(g.vars.Libflags, " "),
	)
}

// AddExecutable emits compile statements for every unit and a link statement
// against the archives of libs
func (g *NinjaGen) AddExecutable(name string, units []Unit, libs []string) {
	objs := make([]string, 0, len(units))
	for _, u := range units {
		objs = append(objs, g.addSource(u))
	}

	archives := make([]string, len(libs))
	for i, lib := range libs {
		archives[i] = g.LibraryFile(lib)
	}

	g.lines = append(g.lines,
		"build "+g.ExecutableFile(name)+": link "+strings.Join(objs, " ")+" | "+strings.Join(archives, " "),
		"  ldflags = "+strings.Join(g.vars.Ldflags, " "),
		"  solibs = "+strings.Join(g.vars.Solibs, " "),
		"  libs = "+strings.Join(archives, " "),
	)
}

// Generate concatenates the header, the platform template and every statement added so far
func (g *NinjaGen) Generate(tools Tools, regenCommand, template string) string {
	var sb strings.Builder

	writeln(&sb, "cc = ", tools.CC)
	writeln(&sb, "cxx = ", tools.CXX)
	writeln(&sb, "ar = ", tools.AR)
	writeln(&sb, "ld = ", tools.LD)
	writeln(&sb)
	writeln(&sb, "rule regen")
	writeln(&sb, "  command = ", regenCommand)
	writeln(&sb, "  description = Regenerating ninja files")
	writeln(&sb)
	writeln(&sb, "build ", BuildFile, ": regen")
	writeln(&sb, "  generator = 1")
	writeln(&sb, "  depfile = ", Depfile)

	write(&sb, template)

	for _, line := range g.lines {
		writeln(&sb, line)
	}

	return sb.String()
}

// GenerateDepfile lists the inputs of the generator, which must already be
// relative to the output directory
func GenerateDepfile(inputs ...string) string {
	var sb strings.Builder
	write(&sb, BuildFile, ":")
	for _, in := range inputs {
		write(&sb, " ", filepath.ToSlash(in))
	}
	writeln(&sb)
	return sb.String()
}

func join(a, b []string) string {
	if len(b) == 0 {
		return strings.Join(a, " ")
	}
	if len(a) == 0 {
		return strings.Join(b, " ")
	}
	return strings.Join(a, " ") + " " + strings.Join(b, " ")
}

func write(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
}

func writeln(sb *strings.Builder, s ...string) {
	write(sb, s...)
	sb.WriteByte('\n')
}
