package cmd

import (
	"slices"
	"testing"

	"github.com/qobs-build/bootgen/internal/platform"
)

func TestEnumValue(t *testing.T) {
	e := NewEnumValue("b", map[string]string{"a": "first", "b": "", "c": "third"})
	if e.Value() != "b" {
		t.Errorf("default = %q", e.Value())
	}
	if err := e.Set("d"); err == nil {
		t.Error("accepted a value outside the set")
	}
	if err := e.Set("c"); err != nil || e.Value() != "c" {
		t.Errorf("set c: %v %q", err, e.Value())
	}
	if e.HelpString() != "[a, b, c]" {
		t.Errorf("help = %q", e.HelpString())
	}

	items, _ := e.CompletionFunc()(nil, nil, "")
	if !slices.Equal(items, []string{"a\tfirst", "b", "c\tthird"}) {
		t.Errorf("completions = %q", items)
	}
}

func TestPlatformValue(t *testing.T) {
	v := newPlatformValue()
	if v.IsSet() {
		t.Fatal("platform flag set by default")
	}
	if p, err := platformOr(&v, platform.AIX); err != nil || p != platform.AIX {
		t.Errorf("unset flag: %v %v", p, err)
	}
	if err := v.Set("msvc"); err != nil {
		t.Fatal(err)
	}
	if p, err := platformOr(&v, platform.AIX); err != nil || p != platform.MSVC {
		t.Errorf("set flag: %v %v", p, err)
	}
	if !slices.Equal(v.AllowedKeys(), []string{"aix", "darwin", "freebsd", "fuchsia", "linux", "mingw", "msvc"}) {
		t.Errorf("keys = %v", v.AllowedKeys())
	}
}
