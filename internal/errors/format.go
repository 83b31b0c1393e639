package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle  = lipgloss.NewStyle()
	codeStyle   = lipgloss.NewStyle()
	locStyle    = lipgloss.NewStyle()
	markerStyle = lipgloss.NewStyle()
	gutterStyle = lipgloss.NewStyle()
)

func init() {
	EnableColors()
}

// DisableColors renders every style as plain text.
func DisableColors() {
	plain := lipgloss.NewStyle()
	errorStyle, codeStyle, locStyle, markerStyle, gutterStyle = plain, plain, plain, plain, plain
}

// EnableColors restores the terminal styles.
func EnableColors() {
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	codeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	locStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	markerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	gutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
}

// Format returns a formatted multi-line error message for terminal display.
func (e *TioError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(errorStyle.Render("ERROR"))
	b.WriteString(" ")
	if e.Code != "" {
		b.WriteString(codeStyle.Render(e.Code + ":"))
		b.WriteString(" ")
	}
	b.WriteString(e.Message)
	b.WriteString("\n\n")

	if e.Location != nil {
		b.WriteString("  ")
		b.WriteString(locStyle.Render(e.Location.String()))
		b.WriteString("\n\n")

		for i, line := range e.Context {
			n := e.contextStart + i
			marker := "  "
			if n == e.Location.Line {
				marker = markerStyle.Render("→ ")
			}
			fmt.Fprintf(&b, "  %s%4d%s%s\n", marker, n, gutterStyle.Render(" │ "), line)
		}
		if len(e.Context) > 0 {
			b.WriteString("\n")
		}
	}

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if e.Wrapped != nil {
		b.WriteString("  ")
		b.WriteString(gutterStyle.Render("Cause: "))
		b.WriteString(e.Wrapped.Error())
		b.WriteString("\n\n")
	}

	if e.Suggestion != "" {
		b.WriteString("  ")
		b.WriteString(locStyle.Render("Hint: "))
		b.WriteString(e.Suggestion)
		b.WriteString("\n\n")
	}

	return b.String()
}

// FormatCompact returns a single-line rendering for log records.
func (e *TioError) FormatCompact() string {
	var b strings.Builder

	if e.Location != nil {
		b.WriteString(e.Location.String())
		b.WriteString(": ")
	}

	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	} else if line := firstLine(e.Detail); line != "" {
		b.WriteString(" (")
		b.WriteString(line)
		b.WriteString(")")
	}

	return b.String()
}

// wrapText wraps text to the specified width.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	var current strings.Builder

	for _, word := range words {
		if current.Len()+len(word)+1 > width {
			if current.Len() > 0 {
				lines = append(lines, current.String())
				current.Reset()
			}
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}

	if current.Len() > 0 {
		lines = append(lines, current.String())
	}

	return lines
}

// Fprint writes a formatted error to w. Non-TioErrors get a one-line header.
func Fprint(w io.Writer, err error) {
	var te *TioError
	if stderrors.As(err, &te) {
		fmt.Fprint(w, te.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", errorStyle.Render("ERROR:"), err.Error())
}

// Compact returns FormatCompact for coded errors and Error otherwise.
func Compact(err error) string {
	var te *TioError
	if stderrors.As(err, &te) {
		return te.FormatCompact()
	}
	return err.Error()
}
