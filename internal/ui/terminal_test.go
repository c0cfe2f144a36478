package ui

import (
	"bytes"
	"testing"
)

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name          string
		noColor       string
		cliColor      string
		cliColorForce string
		wantColor     bool
	}{
		{name: "NO_COLOR disables color", noColor: "1", wantColor: false},
		{name: "CLICOLOR=0 disables color", cliColor: "0", wantColor: false},
		{name: "CLICOLOR_FORCE enables color even in non-TTY", cliColorForce: "1", wantColor: true},
		{name: "NO_COLOR takes precedence over CLICOLOR_FORCE", noColor: "1", cliColorForce: "1", wantColor: false},
		{name: "CLICOLOR_FORCE=0 is ignored", cliColorForce: "0", cliColor: "0", wantColor: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("CLICOLOR", tt.cliColor)
			t.Setenv("CLICOLOR_FORCE", tt.cliColorForce)

			if got := ShouldUseColor(); got != tt.wantColor {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tt.wantColor)
			}
		})
	}
}

func TestRenderMarkdownWithoutColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	in := "# Conflict c-abc\n\n- local: `X`\n"
	if got := RenderMarkdown(in); got != in {
		t.Errorf("RenderMarkdown() = %q, want input unchanged", got)
	}
}

func TestRenderHelpersPlain(t *testing.T) {
	SetColor(false)
	defer SetColor(ShouldUseColor())

	for name, fn := range map[string]func(string) string{
		"added":    RenderAdded,
		"removed":  RenderRemoved,
		"changed":  RenderChanged,
		"conflict": RenderConflict,
		"muted":    RenderMuted,
		"accent":   RenderAccent,
	} {
		if got := fn("x"); got != "x" {
			t.Errorf("%s: got %q with color disabled", name, got)
		}
	}
}

func TestContentHeight(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"one", 1},
		{"one\ntwo", 2},
		{"one\ntwo\n", 3},
	}
	for _, tt := range tests {
		if got := contentHeight(tt.content); got != tt.want {
			t.Errorf("contentHeight(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}

func TestGetPagerCommand(t *testing.T) {
	t.Setenv("DM_PAGER", "")
	t.Setenv("PAGER", "")
	if got := getPagerCommand(); got != "less" {
		t.Errorf("default pager = %q, want less", got)
	}
	t.Setenv("PAGER", "more")
	if got := getPagerCommand(); got != "more" {
		t.Errorf("PAGER = %q, want more", got)
	}
	t.Setenv("DM_PAGER", "bat -p")
	if got := getPagerCommand(); got != "bat -p" {
		t.Errorf("DM_PAGER = %q, want bat -p", got)
	}
}

func TestToPagerNoPager(t *testing.T) {
	var buf bytes.Buffer
	if err := toPager(&buf, "diff output\n", PagerOptions{NoPager: true}); err != nil {
		t.Fatalf("toPager: %v", err)
	}
	if buf.String() != "diff output\n" {
		t.Errorf("got %q", buf.String())
	}
}
