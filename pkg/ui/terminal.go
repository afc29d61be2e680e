// Package ui renders scrape outcomes, job listings and status lines for the
// terminal.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Banner printed at the top of interactive commands
const Banner = `
  ┌─┐┌─┐┌─┐┬┌─┐┬  ┌─┐┌─┐┬─┐┌─┐┌─┐┌─┐┬─┐
  └─┐│ ││  │├─┤│  └─┐│  ├┬┘├─┤├─┘├┤ ├┬┘
  └─┘└─┘└─┘┴┴ ┴┴─┘└─┘└─┘┴└─┴ ┴┴  └─┘┴└─
     artist social profile scrapes
`

// Output is where the Print helpers write
var Output io.Writer = os.Stdout

var (
	cyan    = lipgloss.Color("86")
	yellow  = lipgloss.Color("220")
	red     = lipgloss.Color("203")
	green   = lipgloss.Color("42")
	magenta = lipgloss.Color("212")
	muted   = lipgloss.Color("245")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(magenta)
	labelStyle   = lipgloss.NewStyle().Foreground(cyan).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(yellow)
	errorStyle   = lipgloss.NewStyle().Foreground(red).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(green).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(yellow)
	dimStyle     = lipgloss.NewStyle().Foreground(muted)
)

// Color helpers for inline text
var (
	Cyan    = lipgloss.NewStyle().Foreground(cyan).Render
	Yellow  = lipgloss.NewStyle().Foreground(yellow).Render
	Red     = lipgloss.NewStyle().Foreground(red).Render
	Green   = lipgloss.NewStyle().Foreground(green).Render
	Magenta = lipgloss.NewStyle().Foreground(magenta).Render
	Dim     = dimStyle.Render
)

// PrintBanner prints the banner
func PrintBanner() {
	fmt.Fprint(Output, labelStyle.Render(Banner))
	fmt.Fprintln(Output)
}

// PrintError prints an error message, optionally followed by a cause
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	fmt.Fprintln(Output, errorStyle.Render("✗ "+msg))
}

// PrintSuccess prints a success message
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, successStyle.Render("✓ "+msg))
}

// PrintInfo prints a label and value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", labelStyle.Render(label), valueStyle.Render(value))
}

// PrintWarning prints a warning message, optionally followed by a cause
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	fmt.Fprintln(Output, warningStyle.Render("⚠ "+msg))
}

// PrintHighlight prints a section title
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, titleStyle.Render(msg))
}
