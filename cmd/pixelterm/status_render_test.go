package main

import (
	"strings"
	"testing"
)

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Renderer", statusOK, "/usr/bin/chafa", false)
	if !strings.Contains(line, "Renderer:") || !strings.HasSuffix(line, "[OK] /usr/bin/chafa") {
		t.Fatalf("unexpected line %q", line)
	}
	colored := renderStatusLine("Renderer", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected colour codes in %q", colored)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader(" Cache ", false)
	if lines[0] != "== Cache ==" || len(lines[1]) != len(lines[0]) {
		t.Fatalf("unexpected header %q", lines)
	}
}
