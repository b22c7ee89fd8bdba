package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dwcli/config"
)

// resetFlags restores every flag to its default between Execute calls.
func resetFlags(cmds ...*cobra.Command) {
	for _, c := range cmds {
		reset := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
	}
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String(), runErr
}

func execute(t *testing.T, conf *config.Config, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd, filesCmd, databaseCmd, loginCmd)
	t.Cleanup(func() { resetFlags(rootCmd, filesCmd, databaseCmd, loginCmd) })
	rootCmd.SetArgs(args)
	return captureStdout(t, func() error { return Execute(conf) })
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"yep\n", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tt.input), &out, "Continue?")
		if err != nil {
			t.Errorf("confirm(%q) error = %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("confirm(%q) = %t, want %t", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Continue? (y/N): ") {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestGlobalFlagsOverrideConfig(t *testing.T) {
	conf := &config.Config{Protocol: "https", Host: "from-env", APIKey: "env-key"}

	_, err := execute(t, conf, "files", "--host", "from-flag", "--protocol", "HTTP", "--api-key", "flag-key")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if conf.Host != "from-flag" || conf.Protocol != "http" || conf.APIKey != "flag-key" {
		t.Errorf("config = %+v", conf)
	}
}

func TestFilesListPrintsTree(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Admin/Api/DirectoryAll" || r.Header.Get("Authorization") != "Bearer test-key" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"model": map[string]interface{}{
				"name": "Files",
				"directories": []map[string]interface{}{
					{"name": "Images"},
				},
				"files": map[string]interface{}{
					"data": []map[string]string{{"name": "robots.txt"}},
				},
			},
		})
	}))
	defer server.Close()

	conf := &config.Config{Protocol: "http", Host: strings.TrimPrefix(server.URL, "http://"), APIKey: "test-key"}
	output, err := execute(t, conf, "files", "/", "--list", "--includeFiles")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := "Files\n├── Images\n└── robots.txt\n"
	if output != want {
		t.Errorf("output = %q, want %q", output, want)
	}
}

func TestFilesListBackendErrorPrintsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer server.Close()

	conf := &config.Config{Protocol: "http", Host: strings.TrimPrefix(server.URL, "http://"), APIKey: "bad"}
	output, err := execute(t, conf, "files", "--list")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(output, `"command": "files --list"`) {
		t.Errorf("output doesn't contain JSON error: %s", output)
	}
}

func TestFilesImportRequiresBothPaths(t *testing.T) {
	conf := &config.Config{Protocol: "http", Host: "localhost", APIKey: "k"}
	if _, err := execute(t, conf, "files", "./only-source", "--import"); err == nil {
		t.Fatal("expected error when the destination is missing")
	}
}

func TestFilesImportUploadsFile(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotPath = r.FormValue("path")
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	file := filepath.Join(dir, "page.html")
	if err := os.WriteFile(file, []byte("<html></html>"), 0644); err != nil {
		t.Fatal(err)
	}

	conf := &config.Config{Protocol: "http", Host: strings.TrimPrefix(server.URL, "http://"), APIKey: "k"}
	output, err := execute(t, conf, "files", file, "/Files/Templates", "--import")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if gotPath != "/Files/Templates" {
		t.Errorf("upload path = %q", gotPath)
	}

	var summary struct {
		TotalFiles int `json:"total_files"`
	}
	if err := json.Unmarshal([]byte(output), &summary); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	if summary.TotalFiles != 1 {
		t.Errorf("total_files = %d, want 1", summary.TotalFiles)
	}
}

func TestFilesExportMissingCredential(t *testing.T) {
	conf := &config.Config{Protocol: "https"}
	output, err := execute(t, conf, "files", "Images", "--export")
	if err == nil {
		t.Fatal("expected error without host and api key")
	}
	if !strings.Contains(output, "host is not set") {
		t.Errorf("output = %s", output)
	}
}

func TestDatabaseExport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="Solution.bacpac"`)
		w.Write([]byte("bacpac"))
	}))
	defer server.Close()

	outPath := t.TempDir()
	conf := &config.Config{Protocol: "http", Host: strings.TrimPrefix(server.URL, "http://"), APIKey: "k"}
	if _, err := execute(t, conf, "database", outPath, "--export"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(outPath, "Solution.bacpac")); err != nil {
		t.Errorf("expected database file: %v", err)
	}
}
