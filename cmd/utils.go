package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/qobs-build/bootgen/internal/platform"
	"github.com/spf13/cobra"
)

type EnumValue struct {
	value      string
	allowed    map[string]string // value -> help text
	defaultVal string
}

// NewEnumValue creates an enum flag. An empty default leaves the flag unset
// until it is given on the command line.
func NewEnumValue(defaultVal string, allowed map[string]string) EnumValue {
	if _, ok := allowed[defaultVal]; !ok && defaultVal != "" {
		panic(fmt.Sprintf("default value %q not in allowed set", defaultVal))
	}
	return EnumValue{
		value:      defaultVal,
		allowed:    allowed,
		defaultVal: defaultVal,
	}
}

func (e *EnumValue) String() string     { return e.value }
func (e *EnumValue) HelpString() string { return "[" + strings.Join(e.AllowedKeys(), ", ") + "]" }
func (e *EnumValue) Type() string       { return "enum" }
func (e *EnumValue) Value() string      { return e.value }
func (e *EnumValue) IsSet() bool        { return e.value != "" }

func (e *EnumValue) Set(v string) error {
	if _, ok := e.allowed[v]; ok {
		e.value = v
		return nil
	}
	return fmt.Errorf("must be one of: %s", strings.Join(e.AllowedKeys(), ", "))
}

func (e *EnumValue) AllowedKeys() []string {
	keys := make([]string, 0, len(e.allowed))
	for k := range e.allowed {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (e *EnumValue) CompletionFunc() func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		items := make([]string, 0, len(e.allowed))
		for _, k := range e.AllowedKeys() {
			if help := e.allowed[k]; help != "" {
				items = append(items, fmt.Sprintf("%s\t%s", k, help))
			} else {
				items = append(items, k)
			}
		}
		return items, cobra.ShellCompDirectiveNoFileComp
	}
}

var platformHelp = map[platform.Platform]string{
	platform.Linux:   "Linux with GCC or Clang",
	platform.Darwin:  "macOS",
	platform.MSVC:    "Windows with the Visual C++ toolchain",
	platform.AIX:     "IBM AIX",
	platform.Fuchsia: "Fuchsia",
	platform.FreeBSD: "FreeBSD",
	platform.MinGW:   "Windows with MinGW",
}

// newPlatformValue creates an unset enum flag over every known platform
func newPlatformValue() EnumValue {
	allowed := make(map[string]string)
	for _, p := range platform.All() {
		allowed[p.String()] = platformHelp[p]
	}
	return NewEnumValue("", allowed)
}

// platformOr parses the flag, falling back to fallback when it was not given
func platformOr(e *EnumValue, fallback platform.Platform) (platform.Platform, error) {
	if !e.IsSet() {
		return fallback, nil
	}
	return platform.Parse(e.Value())
}
