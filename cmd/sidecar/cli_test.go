package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/unt-libraries/warc-metadata-sidecar/internal/config"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/db"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/errors"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/ops"
	"github.com/unt-libraries/warc-metadata-sidecar/internal/warc"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	return database, func() { database.Close() }
}

// runApp runs args through the app and returns what it printed to stdout.
func runApp(t *testing.T, app *cli.App, args ...string) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := app.Run(append([]string{"sidecar"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout
	return buf.String(), err
}

func TestMergeCommand(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	app := newCLIApp(database, config.DefaultConfig())

	dir := t.TempDir()
	meta := filepath.Join(dir, "crawl.cdxj")
	os.WriteFile(meta, []byte(`com,example)/ 20200101000000 {"Preservation-Identifier": "fmt/96"}`+"\n"), 0644)
	orig := filepath.Join(dir, "orig.cdxj")
	os.WriteFile(orig, []byte(`com,example)/ 20200101000000 {"url": "http://example.com/"}`+"\n"), 0644)

	out, err := runApp(t, app, "merge", meta, orig, dir)
	if err != nil {
		t.Fatalf("merge command failed: %v", err)
	}

	var output ops.MergeOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Edited != 1 || output.Index != filepath.Join(dir, "orig_merged.cdxj") {
		t.Errorf("output = %+v", output)
	}
	data, _ := os.ReadFile(output.Index)
	if !strings.Contains(string(data), `"preservation-id": "fmt/96"`) {
		t.Errorf("merged = %s", data)
	}

	t.Run("history lists the run", func(t *testing.T) {
		out, err := runApp(t, app, "history", "--operation", "merge")
		if err != nil {
			t.Fatalf("history command failed: %v", err)
		}
		var hist ops.HistoryOutput
		if err := json.Unmarshal([]byte(out), &hist); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if len(hist.Items) != 1 || hist.Items[0].ID != output.RunID {
			t.Errorf("history = %+v", hist.Items)
		}

		out, err = runApp(t, app, "run", output.RunID)
		if err != nil {
			t.Fatalf("run command failed: %v", err)
		}
		var run db.Run
		if err := json.Unmarshal([]byte(out), &run); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if run.Operation != ops.OpMerge || run.Written != 1 {
			t.Errorf("run = %+v", run)
		}
	})
}

func TestBuildIndexCommand(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	app := newCLIApp(database, config.DefaultConfig())

	dir := t.TempDir()
	var buf bytes.Buffer
	w := warc.NewWriter(&buf, true)
	w.WriteRecord(warc.NewWarcinfoRecord("crawl.warc.meta.gz", nil))
	w.WriteRecord(warc.NewMetadataRecord("http://example.com/", "2020-01-01T00:00:00Z", []byte("Preservation-Identifier: fmt/96"), nil))
	sidecar := filepath.Join(dir, "crawl.warc.meta.gz")
	if err := os.WriteFile(sidecar, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "indexes")

	// Sidecar first, output directory last.
	stdout, err := runApp(t, app, "build-index", sidecar, out)
	if err != nil {
		t.Fatalf("build-index command failed: %v", err)
	}
	var output ops.BuildIndexOutput
	if err := json.Unmarshal([]byte(stdout), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, stdout)
	}
	if output.Index != filepath.Join(out, "crawl.cdxj") || output.Lines != 1 {
		t.Errorf("output = %+v", output)
	}
}

func TestCommandErrors(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	app := newCLIApp(database, config.DefaultConfig())
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"classify without archives", []string{"classify", dir}, "[INVALID_REQUEST]"},
		{"build-index missing args", []string{"build-index", dir}, "[INVALID_REQUEST]"},
		{"merge missing file", []string{"merge", filepath.Join(dir, "a.cdxj"), filepath.Join(dir, "b.cdxj"), dir}, "[FILE_NOT_FOUND]"},
		{"history bad operation", []string{"history", "--operation", "purge"}, "[INVALID_REQUEST]"},
		{"run without id", []string{"run"}, "[INVALID_REQUEST]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, app, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			exitErr, ok := err.(cli.ExitCoder)
			if !ok {
				t.Fatalf("error %T is not an ExitCoder", err)
			}
			if exitErr.ExitCode() != 1 {
				t.Errorf("exit code = %d, want 1", exitErr.ExitCode())
			}
			if !strings.HasPrefix(err.Error(), tt.want) {
				t.Errorf("error = %q, want prefix %q", err.Error(), tt.want)
			}
		})
	}
}

func TestOutputError(t *testing.T) {
	err := outputError(errors.NewParse("a.cdxj", 3, "bad line"))
	if err.Error() != "[PARSE_ERROR] a.cdxj:3: bad line" {
		t.Errorf("outputError() = %q", err.Error())
	}
	if err := outputError(os.ErrClosed); err.Error() != os.ErrClosed.Error() {
		t.Errorf("outputError(plain) = %q", err.Error())
	}
}

func TestIsCLIMode(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"sidecar"}, false},
		{[]string{"sidecar", "classify"}, true},
		{[]string{"sidecar", "serve"}, true},
		{[]string{"sidecar", "--version"}, true},
		{[]string{"sidecar", "bogus"}, false},
	}
	for _, tt := range tests {
		os.Args = tt.args
		if got := isCLIMode(); got != tt.want {
			t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
