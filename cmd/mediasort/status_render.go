package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 18

var statusStyles = map[statusKind]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// statusPrinter writes "label: [KIND] message" report lines, coloured when the
// writer is a terminal.
type statusPrinter struct {
	out      io.Writer
	colorize bool
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out, colorize: shouldColorize(out)}
}

func (p *statusPrinter) header(title string) {
	fmt.Fprintln(p.out, sectionHeader(title, p.colorize))
}

func (p *statusPrinter) line(label string, kind statusKind, message string) {
	style := statusStyles[kind]
	text := fmt.Sprintf("  %-*s [%s]", statusLabelWidth, label+":", style.label)
	if message != "" {
		text += " " + message
	}
	fmt.Fprintln(p.out, paint(text, style.color, p.colorize))
}

// check prints an OK or ERROR line depending on ok.
func (p *statusPrinter) check(label string, ok bool, message string) {
	kind := statusOK
	if !ok {
		kind = statusError
	}
	p.line(label, kind, message)
}

func statusKindColor(kind statusKind) string {
	return statusStyles[kind].color
}

func sectionHeader(title string, colorize bool) string {
	return paint("== "+strings.TrimSpace(title)+" ==", ansiBlue, colorize)
}

func paint(text, color string, colorize bool) string {
	if !colorize || color == "" {
		return text
	}
	return color + text + ansiReset
}

// shouldColorize reports whether writer is an interactive terminal. Colour and
// the progress bar are only used there.
func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
