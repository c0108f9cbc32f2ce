package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"pastquestions-backend/pkg/textutil"

	"github.com/jedib0t/go-pretty/v6/table"
)

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// Truncate shortens `text` to at most `max` runes on a single line.
func Truncate(text string, max int) string {
	runes := []rune(textutil.CollapseWhitespace(text))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// Confirm asks a yes/no question, anything but y or yes is a no.
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func OrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
