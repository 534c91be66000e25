/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	// Build the binary before running tests
	wd := mustGetwd()
	cmd := exec.Command("go", "build", "-o", "chunktree_test", ".")
	cmd.Dir = wd
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("failed to build test binary: " + err.Error() + "\n" + string(out))
	}
	code := m.Run()
	_ = os.Remove(filepath.Join(wd, "chunktree_test"))
	os.Exit(code)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	binary := filepath.Join(mustGetwd(), "chunktree_test")
	cmd := exec.Command(binary, args...)
	cmd.Env = append(os.Environ(), "NO_COLOR=1")

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("Failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

var spaFixture = filepath.Join("testdata", "trace", "spa")

type treeNode struct {
	Name     string      `json:"name"`
	Identity string      `json:"identity"`
	Cycle    bool        `json:"cycle"`
	Children []*treeNode `json:"children"`
}

func TestAnalyzeStdout(t *testing.T) {
	stdout, stderr, code := runCLI(t, "analyze", "--package", spaFixture, "--serve=false", "--output", "-")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	var tree treeNode
	if err := json.Unmarshal([]byte(stdout), &tree); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if tree.Name != "/src/main.js" {
		t.Errorf("Expected root /src/main.js, got %q", tree.Name)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("Expected 2 children, got %d", len(tree.Children))
	}
	if tree.Children[0].Name != "./pages/home.js" || tree.Children[1].Name != "./pages/about.ts" {
		t.Errorf("Unexpected children %q, %q", tree.Children[0].Name, tree.Children[1].Name)
	}
	if !strings.Contains(stderr, "2 cycles") {
		t.Errorf("Expected summary on stderr, got: %s", stderr)
	}
}

func TestAnalyzeOutputFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "tree.json")

	stdout, stderr, code := runCLI(t, "analyze", "-p", spaFixture, "--serve=false", "-o", tmpFile)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if stdout != "" {
		t.Errorf("Expected no stdout when writing to file, got: %s", stdout)
	}

	content, err := os.ReadFile(tmpFile)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	var tree treeNode
	if err := json.Unmarshal(content, &tree); err != nil {
		t.Fatalf("Failed to parse output file JSON: %v", err)
	}
	if tree.Name != "/src/main.js" {
		t.Errorf("Expected root /src/main.js, got %q", tree.Name)
	}
	if !strings.Contains(stderr, "Wrote "+tmpFile) {
		t.Errorf("Expected write confirmation, got: %s", stderr)
	}
}

func TestAnalyzeRawIdentity(t *testing.T) {
	stdout, stderr, code := runCLI(t, "analyze", "-p", spaFixture, "--serve=false", "-o", "-", "--identity", "raw")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	var tree treeNode
	if err := json.Unmarshal([]byte(stdout), &tree); err != nil {
		t.Fatalf("Failed to parse JSON output: %v", err)
	}
	if tree.Identity != "/src/main.js" {
		t.Errorf("Expected raw identity /src/main.js, got %q", tree.Identity)
	}
}

func TestAnalyzeInvalidIdentity(t *testing.T) {
	_, stderr, code := runCLI(t, "analyze", "-p", spaFixture, "--serve=false", "-o", "-", "--identity", "hashed")
	if code == 0 {
		t.Error("Expected non-zero exit code for invalid identity")
	}
	if !strings.Contains(stderr, "identity: must be raw or resolved") {
		t.Errorf("Expected identity validation error, got: %s", stderr)
	}
}

func TestAnalyzeMissingTemplate(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "tree.json")
	_, stderr, code := runCLI(t, "analyze", "-p", spaFixture, "-o", tmpFile, "--open=false",
		"--template", filepath.Join(t.TempDir(), "missing.html"))
	if code == 0 {
		t.Error("Expected non-zero exit code for missing template")
	}
	if !strings.Contains(stderr, "template") {
		t.Errorf("Expected template error, got: %s", stderr)
	}
}

func TestAnalyzeEmptyProject(t *testing.T) {
	_, stderr, code := runCLI(t, "analyze", "--package", t.TempDir(), "--serve=false")
	if code == 0 {
		t.Error("Expected non-zero exit code without entries")
	}
	if !strings.Contains(stderr, "no entry file") {
		t.Errorf("Expected 'no entry file' error, got: %s", stderr)
	}
}

func TestServeMissingFile(t *testing.T) {
	_, stderr, code := runCLI(t, "serve", filepath.Join(t.TempDir(), "treeJSON"), "--open=false")
	if code == 0 {
		t.Error("Expected non-zero exit code for missing tree file")
	}
	if !strings.Contains(stderr, "reading tree") {
		t.Errorf("Expected read error, got: %s", stderr)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, code := runCLI(t, "version")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if !strings.HasPrefix(stdout, "chunktree ") {
		t.Errorf("Expected version line, got: %s", stdout)
	}

	stdout, _, code = runCLI(t, "version", "--format", "json")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("Failed to parse version JSON: %v", err)
	}
	if info["version"] == nil {
		t.Error("Expected version field")
	}
}

func TestHelp(t *testing.T) {
	stdout, _, code := runCLI(t, "--help")
	if code != 0 {
		t.Fatalf("Expected exit code 0 for help, got %d", code)
	}

	expectedStrings := []string{
		"chunktree",
		"analyze",
		"serve",
		"--package",
		"--output",
		"--config",
	}

	for _, s := range expectedStrings {
		if !strings.Contains(stdout, s) {
			t.Errorf("Expected %q in help output", s)
		}
	}
}

func TestAnalyzeHelp(t *testing.T) {
	stdout, _, code := runCLI(t, "analyze", "--help")
	if code != 0 {
		t.Fatalf("Expected exit code 0 for help, got %d", code)
	}

	expectedStrings := []string{
		"--identity",
		"--include-static",
		"--exclude",
		"--renderer",
		"--template",
	}

	for _, s := range expectedStrings {
		if !strings.Contains(stdout, s) {
			t.Errorf("Expected %q in analyze help output", s)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, code := runCLI(t, "unknown")
	if code == 0 {
		t.Error("Expected non-zero exit code for unknown command")
	}

	if !strings.Contains(stderr, "unknown command") {
		t.Errorf("Expected 'unknown command' error, got: %s", stderr)
	}
}
