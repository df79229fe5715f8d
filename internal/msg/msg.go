package msg

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	// Out receives every message; tests swap it for a buffer
	Out io.Writer = os.Stdout
	// Verbose enables Debug output (set by --verbose)
	Verbose bool
)

func emit(prefix, format string, a ...any) {
	fmt.Fprint(Out, prefix)
	fmt.Fprint(Out, ": ")
	fmt.Fprintf(Out, format, a...)
	fmt.Fprint(Out, "\n")
}

func Error(format string, a ...any) {
	emit(color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	emit(color.YellowString("warn"), format, a...)
}

func Fatal(format string, a ...any) {
	emit(color.RedString("fatal"), format, a...)
	os.Exit(1)
}

func Info(format string, a ...any) {
	emit(color.HiGreenString("info"), format, a...)
}

func Debug(format string, a ...any) {
	if !Verbose {
		return
	}
	emit(color.HiBlackString("debug"), format, a...)
}

// Step prints an indented coloured verb, e.g. "  Generating build.ninja"
func Step(verb, format string, a ...any) {
	fmt.Fprintf(Out, "  %s %s\n", color.HiGreenString(verb), fmt.Sprintf(format, a...))
}

// IndentWriter prefixes every line written through it, used for subprocess output
type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	buf := make([]byte, 0, len(p)+len(w.Indent))
	for _, c := range p {
		if !w.didIndent {
			buf = append(buf, w.Indent...)
			w.didIndent = true
		}
		buf = append(buf, c)
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	if _, err := w.W.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}
