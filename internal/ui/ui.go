package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	Green     = lipgloss.Color("#22c55e")
	Red       = lipgloss.Color("#ef4444")
	Amber     = lipgloss.Color("#f59e0b")
	Blue      = lipgloss.Color("#3b82f6")
	Cyan      = lipgloss.Color("#06b6d4")
	White     = lipgloss.Color("#f9fafb")
	LightGray = lipgloss.Color("#9ca3af")
)

var (
	successStyle = lipgloss.NewStyle().Foreground(Green).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(Cyan)
	debugStyle   = lipgloss.NewStyle().Foreground(LightGray)
	warnStyle    = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(Red).Bold(true)
	sectionStyle = lipgloss.NewStyle().Foreground(White).Bold(true).Underline(true)
	headerStyle  = lipgloss.NewStyle().Foreground(White).Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

var (
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// SetOutput redirects all printers to w and returns a function restoring the
// previous writers.
func SetOutput(w io.Writer) (restore func()) {
	prevOut, prevErr := out, errOut
	out, errOut = w, w
	return func() {
		out, errOut = prevOut, prevErr
	}
}

func printStyled(w io.Writer, style lipgloss.Style, format string, a ...any) {
	fmt.Fprintln(w, style.Render(fmt.Sprintf(format, a...)))
}

func Success(format string, a ...any) { printStyled(out, successStyle, format, a...) }
func Info(format string, a ...any)    { printStyled(out, infoStyle, format, a...) }
func Debug(format string, a ...any)   { printStyled(out, debugStyle, format, a...) }
func Warn(format string, a ...any)    { printStyled(errOut, warnStyle, format, a...) }
func Error(format string, a ...any)   { printStyled(errOut, errorStyle, format, a...) }

// Basic prints without styling.
func Basic(format string, a ...any) {
	fmt.Fprintf(out, format+"\n", a...)
}

func Section(title string, textLines []string) {
	fmt.Fprintln(out, sectionStyle.Render(title))
	for _, line := range textLines {
		fmt.Fprintln(out, infoStyle.Render(line))
	}
}

func Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(LightGray)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(out, t.Render())
}

// PrefixedUI prints every message with a fixed prefix, e.g. the environment name.
type PrefixedUI struct {
	Prefix string
}

func (p *PrefixedUI) format(format string) string {
	if p.Prefix == "" {
		return format
	}
	return "[" + strings.ReplaceAll(p.Prefix, "%", "%%") + "] " + format
}

func (p *PrefixedUI) Info(format string, a ...any)    { Info(p.format(format), a...) }
func (p *PrefixedUI) Success(format string, a ...any) { Success(p.format(format), a...) }
func (p *PrefixedUI) Warn(format string, a ...any)    { Warn(p.format(format), a...) }
func (p *PrefixedUI) Error(format string, a ...any)   { Error(p.format(format), a...) }
