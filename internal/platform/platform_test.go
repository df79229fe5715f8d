package platform

import (
	"errors"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	for _, p := range All() {
		got, err := Parse(p.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", p, err)
		}
		if got != p {
			t.Errorf("Parse(%q) = %v", p, got)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	_, err := Parse("beos")
	if !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		p       Platform
		windows bool
		posix   bool
	}{
		{Linux, false, true},
		{Darwin, false, true},
		{MSVC, true, false},
		{AIX, false, true},
		{Fuchsia, false, false},
		{FreeBSD, false, true},
		{MinGW, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.p.String(), func(t *testing.T) {
			if got := tt.p.IsWindows(); got != tt.windows {
				t.Errorf("IsWindows() = %v, want %v", got, tt.windows)
			}
			if got := tt.p.IsPosix(); got != tt.posix {
				t.Errorf("IsPosix() = %v, want %v", got, tt.posix)
			}
		})
	}
}

func TestFromGOOS(t *testing.T) {
	if p, err := fromGOOS("windows"); err != nil || p != MSVC {
		t.Errorf("windows -> %v, %v", p, err)
	}
	if _, err := fromGOOS("plan9"); !errors.Is(err, ErrUnknown) {
		t.Errorf("plan9: expected ErrUnknown, got %v", err)
	}
}

func TestWindowsTargetArch(t *testing.T) {
	env := func(m map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) {
			v, ok := m[k]
			return v, ok
		}
	}
	tests := []struct {
		name   string
		env    map[string]string
		goarch string
		want   string
	}{
		{"vcvars x86", map[string]string{"Platform": "x86"}, "amd64", "x86"},
		{"vcvars x64", map[string]string{"Platform": "x64"}, "386", "x64"},
		{"bogus env", map[string]string{"Platform": "arm"}, "amd64", "x64"},
		{"host 386", nil, "386", "x86"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WindowsTargetArch(env(tt.env), tt.goarch); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
