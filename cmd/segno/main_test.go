package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"segno/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
staging_dir = %q
log_dir = %q

[storage]
backend = "local"
local_dir = %q
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "staging"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "objects"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, configPath string, args []string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got %q", needle, haystack)
	}
}

func TestConfigInitCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(env.baseDir, "fresh", "config.toml")
	out, _, err := runCLI(t, env.configPath, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env.configPath, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected error when target already exists")
	}
}

func TestConfigShowCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, []string{"config", "show"})
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "Storage backend: local")
	requireContains(t, out, "Skip-parse threshold: 55")
}

func TestUploadAndInspectCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	pdfPath := filepath.Join(env.baseDir, "March of the Toys.pdf")
	if err := os.WriteFile(pdfPath, testsupport.PDF(t, 3), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, []string{"upload", pdfPath, "--uploader", "u-1"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	requireContains(t, out, "Session ")
	requireContains(t, out, "Queued processing job")

	out, _, err = runCLI(t, env.configPath, []string{"sessions", "list"})
	if err != nil {
		t.Fatalf("sessions list: %v", err)
	}
	requireContains(t, out, "March of the Toys.pdf")
	requireContains(t, out, "pending")

	out, _, err = runCLI(t, env.configPath, []string{"jobs", "list"})
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "process")
	requireContains(t, out, "pending")

	out, _, err = runCLI(t, env.configPath, []string{"status"})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Total: 1")
	requireContains(t, out, "Pending: 1")
}

func TestUploadRejectsNonPDF(t *testing.T) {
	env := setupCLITestEnv(t)

	txtPath := filepath.Join(env.baseDir, "notes.txt")
	if err := os.WriteFile(txtPath, []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, _, err := runCLI(t, env.configPath, []string{"upload", txtPath}); err == nil {
		t.Fatal("expected non-PDF upload to be rejected")
	}
}

func TestSessionsShowMissing(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env.configPath, []string{"sessions", "show", "does-not-exist"}); err == nil {
		t.Fatal("expected missing session to error")
	}
}
