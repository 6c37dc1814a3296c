//go:build !js

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bleurgh/pkg/compiler"
	"bleurgh/pkg/config"
	"bleurgh/pkg/index"
)

// execute runs the root command in a scratch directory with fresh flags.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, logLevel, logFile, indexDSN = "", "", "", ""
	showAsm, runObject = false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--log-level", "none"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

// scratch moves the test into an empty directory and writes src there.
func scratch(t *testing.T, name, src string) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv(config.EnvFile, "")
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunSource(t *testing.T) {
	path := scratch(t, "main.bl", "function bleurgh_main() { (2+3)*4 }")
	out, err := execute(t, path)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Output: 20\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestShowAsm(t *testing.T) {
	path := scratch(t, "main.bl", "function bleurgh_main() { 1.5 }")
	out, err := execute(t, "--show-asm", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, ".FUNC bleurgh_main 0 1") || !strings.HasSuffix(out, "Output: 1.5\n") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestObjectFileRoundTrip(t *testing.T) {
	path := scratch(t, "main.bl", "function helper(a) function bleurgh_main() { 10 / 4 }")
	obj := filepath.Join(filepath.Dir(path), "main.bo")

	out, err := execute(t, path, obj)
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("expected no output when writing an object, got %q", out)
	}
	if _, err := os.Stat(obj); err != nil {
		t.Fatalf("object file not written: %v", err)
	}

	out, err = execute(t, "--run-object", obj)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Output: 2.5\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestConfigEntryPoint(t *testing.T) {
	path := scratch(t, "main.bl", "function start() { 7 } function bleurgh_main() { 1 }")
	if err := os.WriteFile(config.DefaultFile, []byte("entry_point = \"start\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, path)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Output: 7\n" {
		t.Errorf("expected the configured entry point to run, got %q", out)
	}
}

func TestIndexFlag(t *testing.T) {
	path := scratch(t, "main.bl", "function ext(a b) function bleurgh_main() { 3 }")
	dsn := "sqlite3:" + filepath.Join(filepath.Dir(path), "symbols.db")
	if _, err := execute(t, "--index", dsn, path); err != nil {
		t.Fatal(err)
	}

	ix, err := index.Open(context.Background(), dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()
	entries, err := ix.Symbols(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 symbols, got %+v", entries)
	}
}

func TestErrors(t *testing.T) {
	path := scratch(t, "other.bl", "function other() { 1 }")
	if _, err := execute(t, path); !errors.Is(err, compiler.ErrNoEntryPoint) {
		t.Errorf("expected ErrNoEntryPoint, got %v", err)
	}
	if _, err := execute(t); err == nil || err.Error() != usage {
		t.Errorf("expected the usage error, got %v", err)
	}
	if _, err := execute(t, "a", "b", "c"); err == nil || err.Error() != usage {
		t.Errorf("expected the usage error, got %v", err)
	}
	if _, err := execute(t, "missing.bl"); err == nil || !strings.Contains(err.Error(), "failed to read input file") {
		t.Errorf("expected a read error, got %v", err)
	}
	if _, err := execute(t, "--run-object", path); err == nil || !strings.Contains(err.Error(), "failed to read object file") {
		t.Errorf("expected an object format error, got %v", err)
	}
}

func TestReportError(t *testing.T) {
	path := scratch(t, "bad.bl", "function f(")
	_, err := execute(t, path)
	var d *compiler.Diagnostic
	if !errors.As(err, &d) {
		t.Fatalf("expected a diagnostic, got %v", err)
	}

	var buf bytes.Buffer
	reportError(&buf, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected the error and its cause, got %q", buf.String())
	}
	if !strings.HasSuffix(lines[0], ":1:1: error: Expecting function declaration or definition!") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], ":1:12: error: Expecting ')'!") {
		t.Errorf("unexpected cause line %q", lines[1])
	}

	buf.Reset()
	reportError(&buf, errors.New("plain"))
	if buf.String() != "plain\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
