package msg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestIndentWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &IndentWriter{Indent: "  ", W: &buf}
	w.Write([]byte("one\ntw"))
	w.Write([]byte("o\nthree"))
	if got, want := buf.String(), "  one\n  two\n  three"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDebugGated(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	old := Out
	Out = &buf
	t.Cleanup(func() { Out = old; Verbose = false })

	Debug("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("debug printed without Verbose: %q", buf.String())
	}
	Verbose = true
	Debug("shown %d", 2)
	if !strings.Contains(buf.String(), "debug: shown 2") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	pb := NewProgressBar(2, 2, "devices", &buf)
	pb.Done(true)
	pb.Done(false)
	pb.Finish()

	out := buf.String()
	if !strings.Contains(out, "] 1/2 devices\r") {
		t.Errorf("missing first redraw: %q", out)
	}
	if !strings.HasSuffix(out, "\r  ["+strings.Repeat("█", 30)+"] 2/2 devices (1 failed)\n") {
		t.Errorf("unexpected final line: %q", out)
	}
}
