// Package output renders the human-facing view of a run: framed sections,
// status icons, summary rows, and the logger backing library log lines.
package output

import (
	"fmt"
	"os"
	"strings"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// UseColor returns true if colored output should be used.
// Respects NO_COLOR env, TERM=dumb, and terminal detection.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal() || IsCI()
}

// RowStatus writes a row with label, detail, and a status icon.
func RowStatus(sec *Section, label, detail, status string, color bool) {
	icon := StatusIcon(status, color)
	if detail != "" {
		sec.Row("%-12s%s  %s", label, icon, detail)
	} else {
		sec.Row("%-12s%s", label, icon)
	}
}

// Error formats a fatal error for the final line of output. Multi-line
// messages (captured command output) are indented under the first line.
func Error(err error, color bool) string {
	msg := err.Error()
	first, rest, _ := strings.Cut(msg, "\n")
	head := "ERROR: " + first
	if color {
		head = colorRed + colorBold + "ERROR:" + colorReset + " " + first
	}
	if rest == "" {
		return head
	}
	lines := strings.Split(strings.TrimRight(rest, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return fmt.Sprintf("%s\n%s", head, strings.Join(lines, "\n"))
}

// Warn formats a warning line.
func Warn(msg string, color bool) string {
	if color {
		return colorYellow + "WARN" + colorReset + " " + msg
	}
	return "WARN " + msg
}
