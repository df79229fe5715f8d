package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/qobs-build/bootgen/internal/builder/gen"
	"github.com/qobs-build/bootgen/internal/msg"
	"github.com/qobs-build/bootgen/internal/platform"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ErrConfig wraps every configuration error: unknown platforms, missing
// templates, unresolvable library references and malformed target tables
var ErrConfig = errors.New("configuration error")

const (
	ToolCC  = "cc"
	ToolCXX = "cxx"
)

// TemplateDir is where platform templates live, relative to the repository root
const TemplateDir = "build"

var templates = map[platform.Platform]string{
	platform.MSVC:    "build_win.ninja.template",
	platform.Darwin:  "build_mac.ninja.template",
	platform.Linux:   "build_linux.ninja.template",
	platform.FreeBSD: "build_linux.ninja.template",
	platform.AIX:     "build_aix.ninja.template",
}

// Options configure a single generator run
type Options struct {
	Debug  bool
	UseLTO bool
	UseICF bool
	// NoStrip is tri-state: nil strips release binaries, true keeps symbols
	// and adds -g, false does neither
	NoStrip *bool
	OutDir  string
	// RepoRoot is the source tree sources and templates are resolved against
	RepoRoot string
	// EmitterPath is the generator executable re-invoked by the regen rule
	EmitterPath string
	// TargetsFile replaces the built-in target table when set
	TargetsFile string
	// NoLastCommitPosition skips last_commit_position.h
	NoLastCommitPosition bool
}

// CompileUnit is one source file and the include dirs and flags it is compiled with
type CompileUnit struct {
	Src         string
	Tool        string
	IncludeDirs []string
	Cflags      []string
	CflagsCC    []string
}

type Library struct {
	Name  string
	Units []CompileUnit
}

type Executable struct {
	Name  string
	Units []CompileUnit
	// Libs name entries of the table's libraries, in link order
	Libs []string
}

// Table is the validated set of targets. It is not modified after NewTable.
type Table struct {
	libraries   []Library
	executables []Executable
}

// NewTable validates and wraps the given targets, preserving their order
func NewTable(libs []Library, exes []Executable) (*Table, error) {
	t := &Table{libraries: libs, executables: exes}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) Libraries() []Library      { return t.libraries }
func (t *Table) Executables() []Executable { return t.executables }

func (t *Table) validate() error {
	names := make(map[string]bool)
	check := func(kind, name string, units []CompileUnit) error {
		if name == "" {
			return fmt.Errorf("%w: %s without a name", ErrConfig, kind)
		}
		if names[name] {
			return fmt.Errorf("%w: duplicate target %q", ErrConfig, name)
		}
		names[name] = true
		if len(units) == 0 {
			return fmt.Errorf("%w: %s %q has no sources", ErrConfig, kind, name)
		}
		for _, u := range units {
			if u.Tool != ToolCC && u.Tool != ToolCXX {
				return fmt.Errorf("%w: %s %q: unknown tool %q for %s", ErrConfig, kind, name, u.Tool, u.Src)
			}
		}
		return nil
	}

	libs := make(map[string]bool)
	for _, lib := range t.libraries {
		if err := check("library", lib.Name, lib.Units); err != nil {
			return err
		}
		libs[lib.Name] = true
	}
	for _, exe := range t.executables {
		if err := check("executable", exe.Name, exe.Units); err != nil {
			return err
		}
		for _, lib := range exe.Libs {
			if !libs[lib] {
				return fmt.Errorf("%w: executable %q links unknown library %q", ErrConfig, exe.Name, lib)
			}
		}
	}
	return nil
}

// Emitter turns a target table into build.ninja for one target platform
type Emitter struct {
	Target, Host platform.Platform
	Options      Options
	Table        *Table
	Toolchain    Toolchain
	Flags        Flags
}

// NewEmitter resolves the toolchain and flags from lookup once
func NewEmitter(target, host platform.Platform, opts Options, table *Table, lookup LookupEnv, goarch string) *Emitter {
	return &Emitter{
		Target:    target,
		Host:      host,
		Options:   opts,
		Table:     table,
		Toolchain: ResolveToolchain(target, lookup),
		Flags:     DeriveFlags(target, opts, lookup, goarch),
	}
}

func (e *Emitter) outDir() (string, error) {
	return filepath.Abs(e.Options.OutDir)
}

// TemplatePath returns the template file for the target platform
func (e *Emitter) TemplatePath() (string, error) {
	name, ok := templates[e.Target]
	if !ok {
		return "", fmt.Errorf("%w: no build template for platform %s", ErrConfig, e.Target)
	}
	return filepath.Join(e.Options.RepoRoot, TemplateDir, name), nil
}

// relToOut returns p relative to the output directory, or p itself when that is impossible
func relToOut(out, p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(out, abs)
	if err != nil {
		return abs
	}
	return rel
}

// regenCommand re-invokes the generator from inside the output directory with the same options
func (e *Emitter) regenCommand(out string) string {
	args := []string{relToOut(out, e.Options.EmitterPath), "gen"}
	if e.Options.Debug {
		args = append(args, "-d")
	}
	args = append(args, "--platform", e.Target.String())
	if e.Host != e.Target {
		args = append(args, "--host", e.Host.String())
	}
	if e.Options.UseLTO {
		args = append(args, "--use-lto")
	}
	if e.Options.UseICF {
		args = append(args, "--use-icf")
	}
	if e.Options.NoLastCommitPosition {
		args = append(args, "--no-last-commit-position")
	}
	if e.Options.NoStrip != nil {
		args = append(args, fmt.Sprintf("--no-strip=%t", *e.Options.NoStrip))
	}
	if e.Options.TargetsFile != "" {
		args = append(args, "--targets", relToOut(out, e.Options.TargetsFile))
	}
	args = append(args, "--root", relToOut(out, e.Options.RepoRoot), "--out-path", ".")
	return gen.CommandLine(e.Host.IsWindows(), args...)
}

// Generate validates the table and renders both output files in memory
func (e *Emitter) Generate() (*gen.Output, error) {
	if e.Table == nil {
		return nil, fmt.Errorf("%w: no target table", ErrConfig)
	}
	if err := e.Table.validate(); err != nil {
		return nil, err
	}

	templatePath, err := e.TemplatePath()
	if err != nil {
		return nil, err
	}
	template, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading template: %w", ErrConfig, err)
	}

	out, err := e.outDir()
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(e.Options.RepoRoot)
	if err != nil {
		return nil, err
	}

	g := gen.NewNinjaGen(root, e.Target.IsWindows(), gen.Vars{
		IncludeDirs: []string{root, out},
		Cflags:      e.Flags.Cflags,
		CflagsCC:    e.Flags.CflagsCC,
		Arflags:     e.Flags.Arflags,
		Libflags:    e.Flags.Libflags,
		Ldflags:     e.Flags.Ldflags,
		Solibs:      e.Flags.Libs,
	})
	for _, lib := range e.Table.Libraries() {
		g.AddLibrary(lib.Name, toGenUnits(lib.Units))
	}
	for _, exe := range e.Table.Executables() {
		g.AddExecutable(exe.Name, toGenUnits(exe.Units), exe.Libs)
	}

	tools := gen.Tools{CC: e.Toolchain.CC, CXX: e.Toolchain.CXX, AR: e.Toolchain.AR, LD: e.Toolchain.LD}
	inputs := []string{relToOut(out, e.Options.EmitterPath), relToOut(out, templatePath)}
	if e.Options.TargetsFile != "" {
		inputs = append(inputs, relToOut(out, e.Options.TargetsFile))
	}

	msg.Debug("generated %d libraries and %d executables for %s", len(e.Table.Libraries()), len(e.Table.Executables()), e.Target)
	return &gen.Output{
		BuildFile: g.Generate(tools, e.regenCommand(out), string(template)),
		Depfile:   gen.GenerateDepfile(inputs...),
	}, nil
}

func toGenUnits(units []CompileUnit) []gen.Unit {
	res := make([]gen.Unit, len(units))
	for i, u := range units {
		res[i] = gen.Unit{Src: u.Src, Tool: u.Tool, IncludeDirs: u.IncludeDirs, Cflags: u.Cflags, CflagsCC: u.CflagsCC}
	}
	return res
}

// Write stores both files in the output directory, creating it if needed
func (e *Emitter) Write(o *gen.Output) error {
	out, err := e.outDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(out, gen.BuildFile), []byte(o.BuildFile), 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(out, gen.Depfile), []byte(o.Depfile), 0644)
}

// Diff returns a line diff between the existing build.ninja and o, or "" when they match
func (e *Emitter) Diff(o *gen.Output) (string, error) {
	out, err := e.outDir()
	if err != nil {
		return "", err
	}
	old, err := os.ReadFile(filepath.Join(out, gen.BuildFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	if string(old) == o.BuildFile {
		return "", nil
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(old), o.BuildFile)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line != "" {
				sb.WriteString(prefix + strings.TrimSuffix(line, "\n") + "\n")
			}
		}
	}
	return sb.String(), nil
}

// Invoke runs ninja in the output directory
func (e *Emitter) Invoke(ctx context.Context) error {
	out, err := e.outDir()
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, "ninja", "-C", out)
	cmd.Stdout = &msg.IndentWriter{Indent: "    ", W: os.Stdout}
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
