// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"tasklist/internal/task"
)

const (
	// Separator is the line printed above the remaining-count footer.
	Separator = "------------"
)

// FormatTask formats one task line.
// Format: "{N:>4}  [{x| }] {TEXT}\n" (4-wide right-aligned number, two spaces, checkbox, text)
func FormatTask(w io.Writer, num int, t task.Task) {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	fmt.Fprintf(w, "%4d  [%s] %s\n", num, mark, normalizeText(t.Text))
}

// FormatTaskWithID formats a task line followed by its id.
// Format: "{N:>4}  [{x| }] {TEXT}  #{ID}\n"
func FormatTaskWithID(w io.Writer, num int, t task.Task) {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	fmt.Fprintf(w, "%4d  [%s] %s  #%s\n", num, mark, normalizeText(t.Text), t.ID)
}

// FormatRemaining formats the footer with the number of open tasks.
func FormatRemaining(w io.Writer, remaining int) {
	fmt.Fprintln(w, Separator)
	if remaining == 1 {
		fmt.Fprintln(w, "1 item left")
		return
	}
	fmt.Fprintf(w, "%d items left\n", remaining)
}

// normalizeText normalizes task text for display.
// - Empty or whitespace-only text becomes "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
