package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/tio-dev/tio/internal/errors"
)

var (
	out = io.Writer(os.Stdout)

	bannerStyle  = lipgloss.NewStyle()
	successStyle = lipgloss.NewStyle()
	warnStyle    = lipgloss.NewStyle()
	dimStyle     = lipgloss.NewStyle()
)

// setupStyles enables colours only when w is a terminal.
func setupStyles(w io.Writer) {
	out = w
	if f, ok := w.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		errors.DisableColors()
		return
	}
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle = lipgloss.NewStyle().Faint(true)
}

func printBanner() {
	fmt.Fprint(out, bannerStyle.Render(banner))
	fmt.Fprintln(out)
}

func success(format string, args ...any) {
	fmt.Fprintf(out, "%s %s\n", successStyle.Render("✓"), fmt.Sprintf(format, args...))
}

func info(format string, args ...any) {
	fmt.Fprintf(out, "  %s\n", dimStyle.Render(fmt.Sprintf(format, args...)))
}

func warn(format string, args ...any) {
	fmt.Fprintf(out, "%s %s\n", warnStyle.Render("⚠"), fmt.Sprintf(format, args...))
}

func absPath(p string) (string, error) {
	return filepath.Abs(p)
}
