package builder

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/expr-lang/expr"
	"github.com/pelletier/go-toml/v2"
	"github.com/qobs-build/bootgen/internal/platform"
)

//go:embed targets.toml
var defaultTargets string

// TableEnv is the environment `when` conditions and {{...}} interpolations are evaluated against
type TableEnv struct {
	Platform  string `expr:"platform"`
	IsLinux   bool   `expr:"is_linux"`
	IsDarwin  bool   `expr:"is_darwin"`
	IsMSVC    bool   `expr:"is_msvc"`
	IsMinGW   bool   `expr:"is_mingw"`
	IsWindows bool   `expr:"is_windows"`
	IsAIX     bool   `expr:"is_aix"`
	IsPosix   bool   `expr:"is_posix"`
	Debug     bool   `expr:"debug"`
}

func NewTableEnv(p platform.Platform, debug bool) TableEnv {
	return TableEnv{
		Platform:  p.String(),
		IsLinux:   p.IsLinux(),
		IsDarwin:  p.IsDarwin(),
		IsMSVC:    p.IsMSVC(),
		IsMinGW:   p.IsMinGW(),
		IsWindows: p.IsWindows(),
		IsAIX:     p.IsAIX(),
		IsPosix:   p.IsPosix(),
		Debug:     debug,
	}
}

//
// on-disk format
//

type tableFile struct {
	Library    []targetSection `toml:"library"`
	Executable []targetSection `toml:"executable"`
}

// targetBody holds the fields a [[*.when]] block may extend
type targetBody struct {
	Sources     []string
	Libs        []string
	IncludeDirs []string
	Cflags      []string
	CflagsCC    []string
	Files       []fileSection
}

// targetSection defines a [[library]] or [[executable]] entry
type targetSection struct {
	Name        string             `toml:"name"`
	Tool        string             `toml:"tool"`
	Sources     []string           `toml:"sources"`
	Libs        []string           `toml:"libs"`
	IncludeDirs []string           `toml:"include_dirs"`
	Cflags      []string           `toml:"cflags"`
	CflagsCC    []string           `toml:"cflags_cc"`
	Files       []fileSection      `toml:"file"`
	When        []conditionSection `toml:"when"`
}

func (s targetSection) body() targetBody {
	return targetBody{s.Sources, s.Libs, s.IncludeDirs, s.Cflags, s.CflagsCC, s.Files}
}

// conditionSection defines a [[*.when]] block, merged when `if` holds
type conditionSection struct {
	If          string        `toml:"if"`
	Sources     []string      `toml:"sources"`
	Libs        []string      `toml:"libs"`
	IncludeDirs []string      `toml:"include_dirs"`
	Cflags      []string      `toml:"cflags"`
	CflagsCC    []string      `toml:"cflags_cc"`
	Files       []fileSection `toml:"file"`
}

func (s conditionSection) body() targetBody {
	return targetBody{s.Sources, s.Libs, s.IncludeDirs, s.Cflags, s.CflagsCC, s.Files}
}

// fileSection defines a [[*.file]] entry with per-file overrides
type fileSection struct {
	Src         string   `toml:"src"`
	Tool        string   `toml:"tool"`
	IncludeDirs []string `toml:"include_dirs"`
	Cflags      []string `toml:"cflags"`
	CflagsCC    []string `toml:"cflags_cc"`
}

// mergeStructs merges the fields of the src struct into the dst struct
func mergeStructs(dst, src any) error {
	dstVal := reflect.ValueOf(dst)
	if dstVal.Kind() != reflect.Pointer || dstVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dst must be a pointer to a struct")
	}

	dstElem := dstVal.Elem()
	srcVal := reflect.ValueOf(src)

	if srcVal.Kind() == reflect.Pointer {
		srcVal = srcVal.Elem()
	}

	if srcVal.Kind() != reflect.Struct {
		return fmt.Errorf("src must be a struct or a pointer to a struct")
	}

	if dstElem.Type() != srcVal.Type() {
		return fmt.Errorf("dst and src must be of the same struct type")
	}

	for i := range srcVal.NumField() {
		srcField := srcVal.Field(i)
		dstField := dstElem.Field(i)

		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Slice:
			if !srcField.IsNil() {
				dstField.Set(reflect.AppendSlice(dstField, srcField))
			}
		case reflect.Bool:
			dstField.SetBool(dstField.Bool() || srcField.Bool())
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}

	return nil
}

func mustMarshal(v any) string {
	b, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

//
// expr-lang helpers
//

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env TableEnv) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var builder strings.Builder
	lastIndex := 0

	for _, m := range matches {
		builder.WriteString(s[lastIndex:m[0]])

		expression := strings.TrimSpace(s[m[2]:m[3]])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("%w: failed to compile expression %q: %w", ErrConfig, expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("%w: failed to run expression %q: %w", ErrConfig, expression, err)
		}

		fmt.Fprintf(&builder, "%v", result)
		lastIndex = m[1]
	}

	builder.WriteString(s[lastIndex:])

	return builder.String(), nil
}

// processExpressions recursively walks the parsed TOML data and evaluates expressions in strings
func processExpressions(data any, env TableEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			processedVal, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processedVal
		}
		return v, nil
	case []any:
		for i, item := range v {
			processedItem, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processedItem
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}

func evaluateCondition(cond string, env TableEnv) (bool, error) {
	program, err := expr.Compile(cond, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("%w: failed to compile condition %q: %w", ErrConfig, cond, err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("%w: failed to run condition %q: %w", ErrConfig, cond, err)
	}
	return result.(bool), nil
}

//
// loading
//

// ParseTable decodes a target table and resolves it for env. Glob patterns in
// sources are expanded relative to root.
func ParseTable(rdr io.Reader, env TableEnv, root string) (*Table, error) {
	var raw map[string]any
	dec := toml.NewDecoder(rdr)
	if err := dec.Decode(&raw); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, fmt.Errorf("%w: %s", ErrConfig, derr.String())
		}
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	processed, err := processExpressions(raw, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in target table: %w", err)
	}

	var file tableFile
	dec = toml.NewDecoder(strings.NewReader(mustMarshal(processed)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return nil, fmt.Errorf("%w: %s", ErrConfig, serr.String())
		}
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	var libs []Library
	for _, sec := range file.Library {
		units, deps, err := resolveSection(sec, env, root)
		if err != nil {
			return nil, err
		}
		if len(deps) > 0 {
			return nil, fmt.Errorf("%w: library %q cannot link libraries", ErrConfig, sec.Name)
		}
		libs = append(libs, Library{Name: sec.Name, Units: units})
	}

	var exes []Executable
	for _, sec := range file.Executable {
		units, deps, err := resolveSection(sec, env, root)
		if err != nil {
			return nil, err
		}
		exes = append(exes, Executable{Name: sec.Name, Units: units, Libs: deps})
	}

	return NewTable(libs, exes)
}

// resolveSection merges matching `when` blocks into the section and turns it into compile units
func resolveSection(sec targetSection, env TableEnv, root string) ([]CompileUnit, []string, error) {
	body := sec.body()
	for _, cond := range sec.When {
		ok, err := evaluateCondition(cond.If, env)
		if err != nil {
			return nil, nil, fmt.Errorf("target %q: %w", sec.Name, err)
		}
		if !ok {
			continue
		}
		if err := mergeStructs(&body, cond.body()); err != nil {
			return nil, nil, fmt.Errorf("target %q: failed to merge [when %q]: %w", sec.Name, cond.If, err)
		}
	}

	sources, err := expandSources(body.Sources, root)
	if err != nil {
		return nil, nil, fmt.Errorf("target %q: %w", sec.Name, err)
	}

	units := make([]CompileUnit, 0, len(sources)+len(body.Files))
	for _, src := range sources {
		units = append(units, CompileUnit{
			Src:         src,
			Tool:        toolFor(sec.Tool, src),
			IncludeDirs: slices.Clone(body.IncludeDirs),
			Cflags:      slices.Clone(body.Cflags),
			CflagsCC:    slices.Clone(body.CflagsCC),
		})
	}
	for _, f := range body.Files {
		tool := f.Tool
		if tool == "" {
			tool = toolFor(sec.Tool, f.Src)
		}
		units = append(units, CompileUnit{
			Src:         f.Src,
			Tool:        tool,
			IncludeDirs: slices.Concat(body.IncludeDirs, f.IncludeDirs),
			Cflags:      slices.Concat(body.Cflags, f.Cflags),
			CflagsCC:    slices.Concat(body.CflagsCC, f.CflagsCC),
		})
	}

	return units, body.Libs, nil
}

// toolFor returns the section tool, or guesses one from the extension
func toolFor(sectionTool, src string) string {
	if sectionTool != "" {
		return sectionTool
	}
	if path.Ext(src) == ".c" {
		return ToolCC
	}
	return ToolCXX
}

func expandSources(patterns []string, root string) ([]string, error) {
	var sources []string
	for _, pat := range patterns {
		if !strings.ContainsAny(pat, "*?[{") {
			sources = append(sources, pat)
			continue
		}
		if root == "" {
			return nil, fmt.Errorf("%w: glob %q needs a repository root", ErrConfig, pat)
		}
		matches, err := doublestar.Glob(os.DirFS(root), pat, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("%w: bad glob %q: %w", ErrConfig, pat, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%w: glob %q matched no files under %s", ErrConfig, pat, root)
		}
		slices.Sort(matches)
		sources = append(sources, matches...)
	}
	return sources, nil
}

// ParseTableFromFile parses a target table from a filepath
func ParseTableFromFile(path string, env TableEnv, root string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	defer f.Close()

	return ParseTable(bufio.NewReader(f), env, root)
}

// DefaultTable returns the built-in table for GN's own sources
func DefaultTable(env TableEnv, root string) (*Table, error) {
	return ParseTable(strings.NewReader(defaultTargets), env, root)
}

// LoadTable loads the table selected by opts for the target platform
func LoadTable(target platform.Platform, opts Options) (*Table, error) {
	env := NewTableEnv(target, opts.Debug)
	if opts.TargetsFile != "" {
		return ParseTableFromFile(opts.TargetsFile, env, opts.RepoRoot)
	}
	return DefaultTable(env, opts.RepoRoot)
}
