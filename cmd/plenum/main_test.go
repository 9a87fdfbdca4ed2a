package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	content := fmt.Sprintf(`[paths]
data_dir = %q
download_dir = %q
log_dir = %q

[downloads]
requests_per_minute = 6000
concurrency = 2

[retry]
base_delay_seconds = 1
max_retries = 1
`, filepath.Join(base, "data"), filepath.Join(base, "downloads"), filepath.Join(base, "logs"))

	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func writeTestManifest(t *testing.T, urls ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("id,kind,url,language,title\n")
	for i, u := range urls {
		fmt.Fprintf(&b, "session-%03d,video,%s,de,Sitzung %d\n", i, u, i)
	}
	path := filepath.Join(t.TempDir(), "manifest.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestImportIsIdempotent(t *testing.T) {
	cfgPath := writeTestConfig(t)
	manifestPath := writeTestManifest(t,
		"https://example.org/a.mp4",
		"https://example.org/b.mp4",
	)

	out, err := executeCommand(t, "--config", cfgPath, "import", "--manifest", manifestPath)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(out, "Imported 2 new items") {
		t.Fatalf("unexpected output: %s", out)
	}

	out, err = executeCommand(t, "--config", cfgPath, "import", "--manifest", manifestPath)
	if err != nil {
		t.Fatalf("re-import failed: %v", err)
	}
	if !strings.Contains(out, "Imported 0 new items (2 already present)") {
		t.Fatalf("unexpected re-import output: %s", out)
	}
}

func TestRunDownloadsPartition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("media payload"))
	}))
	defer server.Close()

	cfgPath := writeTestConfig(t)
	manifestPath := writeTestManifest(t,
		server.URL+"/a.mp4",
		server.URL+"/b.mp4",
		server.URL+"/c.mp4",
	)

	out, err := executeCommand(t, "--config", cfgPath,
		"run", "--manifest", manifestPath, "--partitions", "1", "--index", "0")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "3 done, 0 failed") {
		t.Fatalf("unexpected run output: %s", out)
	}

	out, err = executeCommand(t, "--config", cfgPath, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "All items terminal") {
		t.Fatalf("unexpected status output: %s", out)
	}
}

func TestRunExitsCleanlyWithFailedItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	cfgPath := writeTestConfig(t)
	manifestPath := writeTestManifest(t, server.URL+"/missing.mp4")

	out, err := executeCommand(t, "--config", cfgPath,
		"run", "--manifest", manifestPath)
	if err != nil {
		t.Fatalf("run with failed items must exit cleanly, got: %v", err)
	}
	if !strings.Contains(out, "0 done, 1 failed") {
		t.Fatalf("unexpected run output: %s", out)
	}

	out, err = executeCommand(t, "--config", cfgPath, "items", "--status", "failed")
	if err != nil {
		t.Fatalf("items failed: %v", err)
	}
	if !strings.Contains(out, "session-000") {
		t.Fatalf("failed item missing from listing: %s", out)
	}

	out, err = executeCommand(t, "--config", cfgPath, "retry")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !strings.Contains(out, "Requeued 1 items") {
		t.Fatalf("unexpected retry output: %s", out)
	}
}

func TestRunRejectsMissingManifest(t *testing.T) {
	cfgPath := writeTestConfig(t)
	_, err := executeCommand(t, "--config", cfgPath,
		"run", "--manifest", filepath.Join(t.TempDir(), "absent.csv"))
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

func TestPartitionsPlanBoundary(t *testing.T) {
	out, err := executeCommand(t, "partitions", "--total", "59188", "--count", "60")
	if err != nil {
		t.Fatalf("partitions failed: %v", err)
	}
	// The final partition starts at 59*987 and absorbs the remainder.
	if !strings.Contains(out, "58233") || !strings.Contains(out, "59188") {
		t.Fatalf("unexpected plan output: %s", out)
	}
}

func TestItemsRejectsUnknownStatus(t *testing.T) {
	cfgPath := writeTestConfig(t)
	_, err := executeCommand(t, "--config", cfgPath, "items", "--status", "bogus")
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected unknown status error, got %v", err)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := executeCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected output: %s", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[downloads]") {
		t.Fatalf("sample config missing sections: %s", data)
	}

	if _, err := executeCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error without --overwrite")
	}
	if _, err := executeCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
}
