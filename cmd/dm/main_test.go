package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMain runs every command test away from the repository's config and
// the user's machine, with colour and the pager off.
func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "dm-cmd-tests-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	oldWD, _ := os.Getwd()

	_ = os.Chdir(tmp)
	_ = os.Setenv("HOME", tmp)
	_ = os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "xdg-config"))
	_ = os.Setenv("NO_COLOR", "1")
	_ = os.Setenv("DM_NO_PAGER", "1")
	_ = os.Unsetenv("DM_DEBUG")
	_ = os.Unsetenv("DM_OTEL_ENABLED")

	code := m.Run()

	_ = os.Chdir(oldWD)
	_ = os.RemoveAll(tmp)
	os.Exit(code)
}

// runDM executes dm with args on a fresh command tree.
func runDM(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// useHistory points the history file at a fresh temp dir for this test.
func useHistory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.json")
	t.Setenv("DM_HISTORY_PATH", path)
	return path
}

// writeFiles writes name -> content under dir and returns dir.
func writeFiles(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return dir
}

// threeVersions writes base, local and remote files and returns their paths.
func threeVersions(t *testing.T, base, local, remote string) (string, string, string) {
	t.Helper()
	dir := writeFiles(t, t.TempDir(), map[string]string{
		"base.md":   base,
		"local.md":  local,
		"remote.md": remote,
	})
	return filepath.Join(dir, "base.md"), filepath.Join(dir, "local.md"), filepath.Join(dir, "remote.md")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runDM(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "dm version "+Version)

	out, _, err = runDM(t, "--version")
	require.NoError(t, err)
	require.Contains(t, out, Version)
}

func TestUnknownConfigFileFails(t *testing.T) {
	_, _, err := runDM(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "version")
	require.Error(t, err)
}
