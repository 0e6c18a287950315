// CLI and HTTP integration tests for the queryshelf binary.
package integration

import (
	"bufio"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestMain builds the queryshelf binary once before running tests.
func TestMain(m *testing.M) {
	projectRoot, err := FindProjectRoot()
	if err != nil {
		buildErr = err
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "queryshelf-test-*")
	if err != nil {
		buildErr = err
		os.Exit(1)
	}
	queryshelfBin = filepath.Join(tmpDir, "queryshelf")

	cmd := exec.Command("go", "build", "-o", queryshelfBin, "./cmd/queryshelf")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		buildErr = &BuildError{Err: err, Output: string(output)}
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

func TestInitAndMigrate(t *testing.T) {
	env := NewTestEnv(t)

	result := env.MustRun("init")
	if !strings.Contains(result.Stdout, "queryshelf initialized") {
		t.Errorf("unexpected init output: %q", result.Stdout)
	}
	if _, err := os.Stat(filepath.Join(env.DataDir, "catalog.db")); err != nil {
		t.Errorf("catalog not created: %v", err)
	}

	applied := ParseJSON[map[string][]string](t, env.MustRun("--json", "migrate").Stdout)
	if len(applied["applied"]) == 0 {
		t.Error("expected applied migrations")
	}
}

func TestSaveListRunDelete(t *testing.T) {
	env := NewTestEnv(t)

	env.MustRun("save", "--database", "data", "--title", "Active users", "select name from users where active = 1 order by name")
	env.MustRun("save", "--database", "data", "--url", "select-21", "select 21")

	listed := ParseJSON[map[string]map[string]string](t, env.MustRun("--json", "list", "data").Stdout)
	if len(listed) != 2 {
		t.Fatalf("expected 2 queries, got %d: %v", len(listed), listed)
	}
	if listed["active-users"]["title"] != "Active users" {
		t.Errorf("title mismatch: %v", listed["active-users"])
	}

	rows := ParseJSON[[]map[string]any](t, env.MustRun("show", "--run", "data", "active-users").Stdout)
	if len(rows) != 2 || rows[0]["name"] != "ada" || rows[1]["name"] != "cy" {
		t.Errorf("unexpected rows: %v", rows)
	}

	dup := env.Run("save", "--database", "data", "--url", "select-21", "select 22")
	if dup.ExitCode != 1 {
		t.Errorf("duplicate save: expected exit 1, got %d (%s)", dup.ExitCode, dup.Stderr)
	}

	env.MustRun("delete", "data", "select-21")
	env.MustRun("delete", "data", "select-21")

	missing := env.Run("show", "data", "select-21")
	if missing.ExitCode != 1 {
		t.Errorf("show deleted: expected exit 1, got %d", missing.ExitCode)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := NewTestEnv(t)
	src.MustRun("save", "--database", "data", "--url", "one", "--actor", "root", "select 1")

	file := filepath.Join(t.TempDir(), "queries.jsonl")
	src.MustRun("export", file)

	dst := NewTestEnv(t)
	res := ParseJSON[map[string]int](t, dst.MustRun("--json", "import", file).Stdout)
	if res["imported"] != 1 {
		t.Errorf("expected 1 imported, got %v", res)
	}

	shown := ParseJSON[map[string]any](t, dst.MustRun("--json", "show", "data", "one").Stdout)
	if shown["actor"] != "root" {
		t.Errorf("actor not preserved: %v", shown)
	}
}

// startServer runs "queryshelf serve" on a free port and returns its base
// URL. The server is interrupted when the test ends.
func startServer(t *testing.T, env *TestEnv) string {
	t.Helper()

	cmd := env.Command("serve", "--listen", "127.0.0.1:0")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		cmd.Process.Signal(os.Interrupt)
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			cmd.Process.Kill()
		}
	})

	line, err := bufio.NewReader(stdout).ReadString('\n')
	if err != nil {
		t.Fatalf("reading server banner: %v", err)
	}
	base := strings.TrimSpace(strings.TrimPrefix(line, "listening on "))
	if !strings.HasPrefix(base, "http://") {
		t.Fatalf("unexpected banner %q", line)
	}
	go io.Copy(io.Discard, stdout)
	return base
}

func TestServeSaveAndExecute(t *testing.T) {
	env := NewTestEnv(t, "*")
	base := startServer(t, env)

	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	form := url.Values{"sql": {"select 21"}, "url": {"select-21"}, "database": {"data"}}
	req, _ := http.NewRequest(http.MethodPost, base+"/save-query", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// Anonymous callers are refused.
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("anonymous save: expected 403, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodPost, base+"/save-query", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Actor-Id", "root")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("save: expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/data/select-21" {
		t.Errorf("save: unexpected location %q", loc)
	}

	resp, err = client.Get(base + "/data/select-21.json")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	rows := ParseJSON[[]map[string]float64](t, string(body))
	if len(rows) != 1 || rows[0]["21"] != 21 {
		t.Errorf("unexpected rows: %s", body)
	}
}
