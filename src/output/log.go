package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// NewLogger returns a logr.Logger printing one line per entry to w.
// V(1) lines are only shown when verbose is set.
func NewLogger(w io.Writer, verbose, color bool) logr.Logger {
	var mu sync.Mutex
	verbosity := 0
	if verbose {
		verbosity = 1
	}

	return funcr.New(func(prefix, args string) {
		mu.Lock()
		defer mu.Unlock()
		line := args
		if prefix != "" {
			line = prefix + ": " + args
		}
		fmt.Fprintf(w, "    %s %s\n", Dimmed("·", color), line)
	}, funcr.Options{Verbosity: verbosity})
}
