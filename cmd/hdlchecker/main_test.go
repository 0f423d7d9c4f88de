package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

var testBinaryPath string

func TestMain(m *testing.M) {
	tempBinary := filepath.Join(os.TempDir(), "hdlchecker-test-"+fmt.Sprintf("%d", time.Now().UnixNano()))

	buildCmd := exec.Command("go", "build", "-o", tempBinary, ".")
	var buildOut bytes.Buffer
	buildCmd.Stdout = &buildOut
	buildCmd.Stderr = &buildOut
	if err := buildCmd.Run(); err != nil {
		fmt.Printf("failed to build hdlchecker for testing: %v\n%s\n", err, buildOut.String())
		os.Exit(1)
	}
	testBinaryPath = tempBinary

	code := m.Run()
	os.Remove(testBinaryPath)
	os.Exit(code)
}

func writeProject(t *testing.T, dir, source, projectBody string) string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "foo.vhd"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	projectFile := filepath.Join(dir, "project.cfg")
	if err := os.WriteFile(projectFile, []byte(projectBody), 0o644); err != nil {
		t.Fatal(err)
	}
	return projectFile
}

func TestCheckCommandExitsZeroOnCleanProject(t *testing.T) {
	dir := t.TempDir()
	projectFile := writeProject(t, dir, "entity foo is end entity;", "vhdl mylib foo.vhd\n")

	cmd := exec.Command(testBinaryPath, "check", projectFile)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if err != nil {
		t.Fatalf("expected exit 0, got error %v, output: %s", err, out.String())
	}
}

func TestCheckCommandExitsTwoOnMissingProjectFile(t *testing.T) {
	cmd := exec.Command(testBinaryPath, "check", "/nonexistent/project.cfg")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected an ExitError, got %v", err)
	}
	if exitErr.ExitCode() != exitConfigFailed {
		t.Fatalf("expected exit code %d, got %d: %s", exitConfigFailed, exitErr.ExitCode(), out.String())
	}
}
