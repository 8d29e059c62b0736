package preflight

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"quadsync/internal/config"
)

func withLookPath(t *testing.T, known ...string) {
	t.Helper()
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })
	lookPath = func(file string) (string, error) {
		for _, k := range known {
			if k == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", exec.ErrNotFound
	}
}

func TestCheckSourceRoot_OK(t *testing.T) {
	result := CheckSourceRoot(t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckSourceRoot_NotExist(t *testing.T) {
	result := CheckSourceRoot(filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckSourceRoot_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckSourceRoot(f).Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckTargetDir_CreatesMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "etc", "containers", "systemd")
	result := CheckTargetDir(dir)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected %s to be created", dir)
	}
}

func TestCheckTargetDir_Uncreatable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckTargetDir(filepath.Join(blocker, "systemd")).Passed {
		t.Fatal("expected failure when a parent is a regular file")
	}
}

func TestCheckTargetDir_ReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	if CheckTargetDir(dir).Passed {
		t.Fatal("expected failure for read-only target")
	}
}

func TestCheckCommand(t *testing.T) {
	withLookPath(t, "systemctl")

	if r := CheckCommand("systemctl"); !r.Passed || r.Path != "/usr/bin/systemctl" {
		t.Errorf("expected systemctl to resolve, got %+v", r)
	}
	if r := CheckCommand("podman"); r.Passed {
		t.Errorf("expected podman to be missing, got %+v", r)
	}
}

func TestRunAll(t *testing.T) {
	withLookPath(t, "systemctl")
	base := t.TempDir()
	source := filepath.Join(base, "units")
	if err := os.Mkdir(source, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.SourceDirs = []string{source}
	cfg.TargetDir = filepath.Join(base, "target")

	results := RunAll(cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results (systemctl, source, target), got %d", len(results))
	}
	if err := Err(results); err != nil {
		t.Fatalf("expected all checks to pass: %v", err)
	}
}

func TestRunAll_Failures(t *testing.T) {
	withLookPath(t)
	base := t.TempDir()

	cfg := config.Default()
	cfg.SourceDirs = []string{filepath.Join(base, "missing")}
	cfg.TargetDir = filepath.Join(base, "target")
	cfg.RequiredCommands = []string{"podman", "systemctl"}

	results := RunAll(cfg)
	err := Err(results)
	if err == nil {
		t.Fatal("expected preflight to fail")
	}

	var ce *config.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected a ConfigurationError, got %T", err)
	}
	if ce.Component != "preflight" {
		t.Errorf("expected component preflight, got %q", ce.Component)
	}

	var coll *config.ConfigurationErrorCollection
	if !errors.As(err, &coll) {
		t.Fatal("expected the individual failures to be wrapped")
	}
	// systemctl (deduplicated), podman, missing source root
	if len(coll.Errors) != 3 {
		t.Errorf("expected 3 failures, got %d: %v", len(coll.Errors), coll)
	}
	if !strings.Contains(ce.DetailedError(), "not found in PATH") {
		t.Errorf("detailed error lacks command failure:\n%s", ce.DetailedError())
	}
}

func TestRunAll_DBusNeedsNoSystemctl(t *testing.T) {
	withLookPath(t)
	base := t.TempDir()

	cfg := config.Default()
	cfg.SourceDirs = []string{base}
	cfg.TargetDir = filepath.Join(base, "target")
	cfg.ServiceManager.Backend = config.BackendDBus

	if err := Err(RunAll(cfg)); err != nil {
		t.Fatalf("expected no command requirement for dbus backend: %v", err)
	}
}
