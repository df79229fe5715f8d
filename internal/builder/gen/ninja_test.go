package gen

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestQuote(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a.cc", "a.cc"},
		{"C:/src/a.cc", "C$:/src/a.cc"},
		{"my dir/a.cc", "my$ dir/a.cc"},
		{"cost$.cc", "cost$$.cc"},
	}
	for _, tt := range tests {
		if got := quote(tt.in); got != tt.want {
			t.Errorf("quote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileNames(t *testing.T) {
	posix := NewNinjaGen("/src", false, Vars{})
	win := NewNinjaGen("/src", true, Vars{})

	if got := posix.objectFile("base/a.cc"); got != "base/a.o" {
		t.Errorf("posix object %q", got)
	}
	if got := win.objectFile("base/a.cc"); got != "base/a.obj" {
		t.Errorf("windows object %q", got)
	}
	if posix.LibraryFile("base") != "base.a" || win.LibraryFile("base") != "base.lib" {
		t.Error("library names")
	}
	if posix.ExecutableFile("gn") != "gn" || win.ExecutableFile("gn") != "gn.exe" {
		t.Error("executable names")
	}
}

func TestGenerate(t *testing.T) {
	root := filepath.FromSlash("/src")
	g := NewNinjaGen(root, false, Vars{
		IncludeDirs: []string{"/src", "/src/out"},
		Cflags:      []string{"-O3"},
		CflagsCC:    []string{"-std=c++14"},
		Arflags:     []string{"-T"},
		Ldflags:     []string{"-s"},
		Solibs:      []string{"-ldl"},
	})
	g.AddLibrary("core", []Unit{{Src: "core/a.cc", Tool: "cxx", Cflags: []string{"-DA"}}})
	g.AddExecutable("app", []Unit{{Src: "app/main.c", Tool: "cc", IncludeDirs: []string{"app"}}}, []string{"core"})

	got := g.Generate(Tools{CC: "cc", CXX: "c++", AR: "ar", LD: "c++"}, "regen-cmd", "\nrule cxx\n")

	want := "cc = cc\ncxx = c++\nar = ar\nld = c++\n\n" +
		"rule regen\n  command = regen-cmd\n  description = Regenerating ninja files\n\n" +
		"build build.ninja: regen\n  generator = 1\n  depfile = build.ninja.d\n" +
		"\nrule cxx\n" +
		"build core/a.o: cxx " + filepath.Join(root, "core", "a.cc") + "\n" +
		"  includes = -I/src -I/src/out\n" +
		"  cflags = -O3 -DA\n" +
		"  cflags_cc = -std=c++14\n" +
		"build core.a: alink_thin core/a.o\n" +
		"  arflags = -T\n" +
		"  libflags = \n" +
		"build app/main.o: cc " + filepath.Join(root, "app", "main.c") + "\n" +
		"  includes = -I/src -I/src/out -Iapp\n" +
		"  cflags = -O3\n" +
		"  cflags_cc = -std=c++14\n" +
		"build app: link app/main.o | core.a\n" +
		"  ldflags = -s\n" +
		"  solibs = -ldl\n" +
		"  libs = core.a\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestGenerateDepfile(t *testing.T) {
	got := GenerateDepfile("../../bootgen", filepath.Join("..", "..", "build", "build_linux.ninja.template"))
	want := "build.ninja: ../../bootgen ../../build/build_linux.ninja.template\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if !strings.HasSuffix(GenerateDepfile(), ":\n") {
		t.Error("empty depfile")
	}
}

func TestJoin(t *testing.T) {
	if join(nil, nil) != "" || join([]string{"a"}, nil) != "a" || join(nil, []string{"b"}) != "b" || join([]string{"a"}, []string{"b", "c"}) != "a b c" {
		t.Error("join")
	}
}

func TestCommandLine(t *testing.T) {
	tests := []struct {
		name    string
		windows bool
		args    []string
		want    string
	}{
		{"plain", false, []string{"../../bootgen", "gen", "--no-strip=true", "--out-path", "."}, "../../bootgen gen --no-strip=true --out-path ."},
		{"space", false, []string{"../my tools/bootgen", "gen"}, "'../my tools/bootgen' gen"},
		{"dollar", false, []string{"/opt/$HOME/bootgen"}, "'/opt/$$HOME/bootgen'"},
		{"single quote", false, []string{"it's"}, `'it'\''s'`},
		{"empty", false, []string{""}, "''"},
		{"windows backslashes", true, []string{`..\..\bootgen.exe`, "gen"}, `..\..\bootgen.exe gen`},
		{"windows space", true, []string{`C:\Program Files\bootgen.exe`}, `"C:\Program Files\bootgen.exe"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CommandLine(tt.windows, tt.args...); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
