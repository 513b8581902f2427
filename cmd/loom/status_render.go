package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// statusKind selects the tag and color of a rendered status line.
type statusKind struct {
	tag   string
	color string
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var (
	statusInfo  = statusKind{tag: "INFO", color: ansiBlue}
	statusOK    = statusKind{tag: "OK", color: ansiGreen}
	statusWarn  = statusKind{tag: "WARN", color: ansiYellow}
	statusError = statusKind{tag: "ERROR", color: ansiRed}
)

const (
	statusLabelWidth = 12
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	var b strings.Builder
	if colorize && kind.color != "" {
		b.WriteString(kind.color)
	}
	fmt.Fprintf(&b, "%s%-*s [%s]", statusIndent, statusLabelWidth, label+":", kind.tag)
	if message != "" {
		b.WriteByte(' ')
		b.WriteString(message)
	}
	if colorize && kind.color != "" {
		b.WriteString(ansiReset)
	}
	return b.String()
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
