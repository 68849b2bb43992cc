package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// StubVersion is printed by the stub renderer for --version.
const StubVersion = "Chafa version 1.14.0"

// Stub describes a fake renderer executable.
type Stub struct {
	Binary string
	Log    string
}

// Calls returns the image paths the stub rendered, in invocation order.
func (s Stub) Calls(t testing.TB) []string {
	t.Helper()

	data, err := os.ReadFile(s.Log)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read stub log: %v", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

// StubRenderer writes a shell script named chafa into binDir. It echoes its
// arguments to stdout, records the image path in a log file, and fails for
// any path containing "broken". binDir is prepended to PATH.
func StubRenderer(t testing.TB, binDir string) Stub {
	t.Helper()

	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	stub := Stub{
		Binary: filepath.Join(binDir, "chafa"),
		Log:    filepath.Join(binDir, "calls.log"),
	}
	script := fmt.Sprintf(`#!/bin/sh
if [ "$1" = "--version" ]; then
  echo %q
  echo "Copyright (C) 2018-2024 Petter Jansson"
  exit 0
fi
for arg in "$@"; do last="$arg"; done
case "$last" in
  *broken*) echo "chafa: could not load $last" >&2; exit 1 ;;
esac
echo "$last" >> %q
printf 'rendered %%s\n' "$*"
`, StubVersion, stub.Log)
	if err := os.WriteFile(stub.Binary, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub renderer: %v", err)
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
	return stub
}
