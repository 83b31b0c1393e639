package errors

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryBundle  Category = "bundle"
	CategoryCompile Category = "compile"
	CategoryServer  Category = "server"
	CategoryWatch   Category = "watch"
	CategoryPublish Category = "publish"
	CategoryCLI     Category = "cli"
)

// Location represents a source code location.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// TioError is a structured error with an optional source location and hint.
type TioError struct {
	// Code is a unique error identifier (e.g., "E110").
	Code string

	// Category is the error type (config, bundle, compile, ...).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the source location the error refers to, if any.
	Location *Location

	// Context contains the source lines around Location.
	Context []string

	// contextStart is the line number of Context[0].
	contextStart int

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *TioError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *TioError) Unwrap() error {
	return e.Wrapped
}

// WithLocation points the error at a source position and loads the
// surrounding lines when the file is readable. path is read; file is what
// gets displayed.
func (e *TioError) WithLocation(path, file string, line, column int) *TioError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.contextStart, e.Context = readContextLines(path, line, 2)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *TioError) WithSuggestion(s string) *TioError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *TioError) WithDetail(d string) *TioError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *TioError) Wrap(err error) *TioError {
	e.Wrapped = err
	return e
}

// readContextLines returns up to radius lines on each side of target.
func readContextLines(path string, target, radius int) (int, []string) {
	if target <= 0 {
		return 0, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, nil
	}
	defer f.Close()

	first := max(target-radius, 1)
	last := target + radius

	var lines []string
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan() && n <= last; n++ {
		if n >= first {
			lines = append(lines, scanner.Text())
		}
	}
	return first, lines
}

// New creates a TioError from a registered error code.
func New(code string) *TioError {
	template, ok := registry[code]
	if !ok {
		return &TioError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &TioError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// HasCode reports whether err, or any error it wraps, is a TioError with code.
func HasCode(err error, code string) bool {
	for err != nil {
		if te, ok := err.(*TioError); ok && te.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// firstLine trims multi-line tool output down to its first non-empty line.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
