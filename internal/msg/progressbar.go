package msg

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ProgressBar counts finished jobs and redraws a single line. It is safe for
// concurrent use.
type ProgressBar struct {
	Total  int
	Indent int
	Label  string
	W      io.Writer

	mu      sync.Mutex
	current int
	failed  int
}

func NewProgressBar(total, indent int, label string, w io.Writer) *ProgressBar {
	return &ProgressBar{Total: total, Indent: indent, Label: label, W: w}
}

// Done records one finished job
func (pb *ProgressBar) Done(ok bool) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current++
	if !ok {
		pb.failed++
	}
	pb.print()
}

func (pb *ProgressBar) print() {
	const width = 30
	filled := width
	if pb.Total > 0 {
		filled = min(pb.current*width/pb.Total, width)
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("-", width-filled)

	fmt.Fprintf(pb.W, "\r%s[%s] %d/%d %s", strings.Repeat(" ", pb.Indent), bar, pb.current, pb.Total, pb.Label)
	if pb.failed > 0 {
		fmt.Fprintf(pb.W, " (%d failed)", pb.failed)
	}
}

func (pb *ProgressBar) Finish() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.print()
	fmt.Fprintln(pb.W)
}
