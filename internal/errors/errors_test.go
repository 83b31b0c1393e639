package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "config error",
			code:    "E101",
			wantMsg: "Invalid configuration file",
			wantCat: CategoryConfig,
		},
		{
			name:    "compile error",
			code:    "E112",
			wantMsg: "Component compilation failed",
			wantCat: CategoryCompile,
		},
		{
			name:    "server error",
			code:    "E120",
			wantMsg: "HTTP listener failed",
			wantCat: CategoryServer,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestTioError_Error(t *testing.T) {
	err := New("E111")
	if got, want := err.Error(), "E111: Build failed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := New("E120").Wrap(stderrors.New("address already in use"))
	if got, want := wrapped.Error(), "E120: HTTP listener failed: address already in use"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	bare := &TioError{Message: "plain"}
	if bare.Error() != "plain" {
		t.Errorf("Error() = %q, want %q", bare.Error(), "plain")
	}
}

func TestTioError_Unwrap(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := New("E101").Wrap(cause)
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	var te *TioError
	if !stderrors.As(error(err), &te) {
		t.Fatal("errors.As should find *TioError")
	}
	if te.Code != "E101" {
		t.Errorf("Code = %q", te.Code)
	}
}

func TestHasCode(t *testing.T) {
	inner := New("E110").Wrap(io.EOF)
	outer := New("E111").Wrap(inner)

	if !HasCode(outer, "E111") {
		t.Error("outer code not found")
	}
	if !HasCode(outer, "E110") {
		t.Error("inner code not found through Unwrap")
	}
	if HasCode(outer, "E120") {
		t.Error("unexpected code match")
	}
	if HasCode(nil, "E110") {
		t.Error("nil error should never match")
	}
}

func TestWithLocation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "App.xht")
	content := "line1\nline2\nline3\nline4\nline5\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("E112").WithLocation(file, "src/App.xht", 3, 2)
	if err.Location.File != "src/App.xht" || err.Location.Line != 3 || err.Location.Column != 2 {
		t.Errorf("Location = %+v", err.Location)
	}
	if len(err.Context) != 5 || err.contextStart != 1 {
		t.Errorf("Context = %d lines from %d, want 5 from 1", len(err.Context), err.contextStart)
	}

	first := New("E112").WithLocation(file, "App.xht", 1, 0)
	if strings.Join(first.Context, ",") != "line1,line2,line3" {
		t.Errorf("Context = %v", first.Context)
	}

	missing := New("E112").WithLocation(filepath.Join(dir, "nope.xht"), "nope.xht", 3, 0)
	if missing.Context != nil {
		t.Error("missing file should produce no context")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	file := filepath.Join(t.TempDir(), "App.xht")
	if err := os.WriteFile(file, []byte("<div>\n  <p>\n</div>\n"), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("E112").
		WithDetail("unexpected token").
		WithSuggestion("Check the component markup").
		WithLocation(file, "src/App.xht", 2, 3).
		Wrap(stderrors.New("exit status 1"))

	out := err.Format()
	for _, want := range []string{
		"ERROR E112: Component compilation failed",
		"src/App.xht:2:3",
		"→    2 │   <p>",
		"     1 │ <div>",
		"unexpected token",
		"Cause: exit status 1",
		"Hint: Check the component markup",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() should not contain ANSI codes when colors are disabled")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("E111").WithDetail("\n  src/index.js: Could not resolve \"x\"\nmore")
	err.Location = &Location{File: "src/index.js", Line: 2}

	want := `src/index.js:2: E111: Build failed (src/index.js: Could not resolve "x")`
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestRegistry(t *testing.T) {
	for code, tmpl := range registry {
		if tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("template for %s incomplete: %+v", code, tmpl)
		}
	}
}

func TestCompact(t *testing.T) {
	if got := Compact(stderrors.New("plain")); got != "plain" {
		t.Errorf("Compact(plain) = %q", got)
	}
	wrapped := fmt.Errorf("rebuild: %w", New("E111").WithDetail("x.js: bad"))
	if got := Compact(wrapped); got != "E111: Build failed (x.js: bad)" {
		t.Errorf("Compact(wrapped) = %q", got)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("the quick brown fox jumps over the lazy dog", 10)
	for _, line := range lines {
		if len(line) > 10 {
			t.Errorf("line %q longer than width", line)
		}
	}
	if strings.Join(lines, " ") != "the quick brown fox jumps over the lazy dog" {
		t.Errorf("wrapText lost words: %v", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("empty text should wrap to nil")
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var b strings.Builder
	Fprint(&b, stderrors.New("plain failure"))
	if !strings.Contains(b.String(), "ERROR: plain failure") {
		t.Errorf("Fprint plain = %q", b.String())
	}

	b.Reset()
	Fprint(&b, New("E100"))
	if !strings.Contains(b.String(), "E100: Configuration file not found") {
		t.Errorf("Fprint coded = %q", b.String())
	}
}
