package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"pixelterm/internal/config"
	"pixelterm/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	stub       testsupport.Stub
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("COLUMNS", "")
	t.Setenv("LINES", "")

	stub := testsupport.StubRenderer(t, filepath.Join(base, "bin"))
	cfg.Renderer.Binary = stub.Binary

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		stub:       stub,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(&bytes.Buffer{})
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[cache]
dir = %q
throttle_ms = 0

[renderer]
binary = %q

[navigation]
remember_position = %t
history_path = %q

[logging]
dir = %q
`,
		cfg.Cache.Dir,
		cfg.Renderer.Binary,
		cfg.Navigation.RememberPosition,
		cfg.Navigation.HistoryPath,
		cfg.Logging.Dir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
