// Package integration provides CLI integration tests for queryshelf.
package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/mesh-intelligence/queryshelf/internal/sqlite"
)

var (
	// queryshelfBin is the path to the built queryshelf binary.
	queryshelfBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot finds the project root by walking up and looking for go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// TestEnv provides an isolated test environment with its own config
// directory, data directory and one logical database called "data".
type TestEnv struct {
	t         *testing.T
	TempDir   string
	ConfigDir string
	DataDir   string
}

// NewTestEnv creates a new isolated test environment. The "data" database
// holds a users table with three rows. actors is written to allowed_actors.
func NewTestEnv(t *testing.T, actors ...string) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build queryshelf: %v", buildErr)
	}
	if queryshelfBin == "" {
		t.Fatal("queryshelf binary not built (queryshelfBin is empty)")
	}

	tempDir := t.TempDir()
	env := &TestEnv{
		t:         t,
		TempDir:   tempDir,
		ConfigDir: filepath.Join(tempDir, "config"),
		DataDir:   filepath.Join(tempDir, "data"),
	}
	if err := os.MkdirAll(env.ConfigDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	db, err := sqlite.OpenDB(filepath.Join(env.ConfigDir, "data.db"), false)
	if err != nil {
		t.Fatalf("failed to create data database: %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, active INTEGER)`,
		`INSERT INTO users (name, active) VALUES ('ada', 1), ('bob', 0), ('cy', 1)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to seed data database: %v", err)
		}
	}
	db.Close()

	actorsJSON, _ := json.Marshal(actors)
	config := "backend: sqlite\n" +
		"data_dir: " + env.DataDir + "\n" +
		"databases:\n  data: data.db\n" +
		"allowed_actors: " + string(actorsJSON) + "\n" +
		"log_level: warn\n"
	if err := os.WriteFile(filepath.Join(env.ConfigDir, "config.yaml"), []byte(config), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return env
}

// CmdResult holds the result of a queryshelf command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Command returns an exec.Cmd for the binary with the env's directories
// and a scrubbed environment.
func (e *TestEnv) Command(args ...string) *exec.Cmd {
	allArgs := append([]string{"--config-dir", e.ConfigDir}, args...)
	cmd := exec.Command(queryshelfBin, allArgs...)
	cmd.Dir = e.TempDir
	cmd.Env = append(os.Environ(), "OPENAI_API_KEY=", "QUERYSHELF_LISTEN=")
	return cmd
}

// Run executes the queryshelf CLI with the given arguments.
func (e *TestEnv) Run(args ...string) CmdResult {
	e.t.Helper()

	cmd := e.Command(args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			e.t.Fatalf("failed to run queryshelf: %v", err)
		}
	}
	return CmdResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}
}

// MustRun executes the queryshelf CLI and fails the test if it returns non-zero.
func (e *TestEnv) MustRun(args ...string) CmdResult {
	e.t.Helper()
	result := e.Run(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("queryshelf %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, jsonStr string) T {
	t.Helper()
	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", jsonStr, err)
	}
	return result
}
