package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

func writeFixture(t *testing.T, dir string) []string {
	t.Helper()

	file1Path := filepath.Join(dir, "file1.txt")
	if err := os.WriteFile(file1Path, []byte("test content 1"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	subDir := filepath.Join(dir, "subdir")
	if err := os.Mkdir(subDir, 0755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(subDir, "file2.txt"), []byte("test content 2"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	return []string{file1Path, subDir}
}

func TestCreateArchive(t *testing.T) {
	tempDir := t.TempDir()
	paths := writeFixture(t, tempDir)

	archivePath := filepath.Join(tempDir, "test-archive.zip")
	if err := Create(paths, archivePath); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	defer reader.Close()

	names := map[string]bool{}
	for _, f := range reader.File {
		names[f.Name] = true
	}
	for _, want := range []string{"file1.txt", "subdir/file2.txt"} {
		if !names[want] {
			t.Errorf("archive entries = %v, missing %s", names, want)
		}
	}

	if err := Create([]string{filepath.Join(tempDir, "non-existent")}, archivePath); err == nil {
		t.Errorf("Create() with invalid path should return error")
	}
}

func TestExtract(t *testing.T) {
	tempDir := t.TempDir()
	archivePath := filepath.Join(tempDir, "Files.zip")
	if err := Create(writeFixture(t, tempDir), archivePath); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	type call struct{ processed, total, percent int }
	var calls []call
	dest := filepath.Join(tempDir, "out", "Files")

	err := Extract(archivePath, dest, func(processed, total, percent int) {
		calls = append(calls, call{processed, total, percent})
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dest, "subdir", "file2.txt"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(content) != "test content 2" {
		t.Errorf("extracted content = %q, want %q", content, "test content 2")
	}

	expected := []call{{1, 2, 50}, {2, 2, 100}}
	if len(calls) != len(expected) {
		t.Fatalf("onEntry called %d times, want %d", len(calls), len(expected))
	}
	for i := range expected {
		if calls[i] != expected[i] {
			t.Errorf("onEntry call %d = %+v, want %+v", i, calls[i], expected[i])
		}
	}

	if _, err := os.Stat(archivePath); !os.IsNotExist(err) {
		t.Errorf("archive was not removed after extraction: %v", err)
	}
}

func TestExtractFloorsPercent(t *testing.T) {
	tempDir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		p := filepath.Join(tempDir, name)
		if err := os.WriteFile(p, []byte(name), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		paths = append(paths, p)
	}
	archivePath := filepath.Join(tempDir, "three.zip")
	if err := Create(paths, archivePath); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var percents []int
	if err := Extract(archivePath, filepath.Join(tempDir, "out"), func(_, _, percent int) {
		percents = append(percents, percent)
	}); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	expected := []int{33, 66, 100}
	for i := range expected {
		if percents[i] != expected[i] {
			t.Errorf("percent %d = %d, want %d", i, percents[i], expected[i])
		}
	}
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	tempDir := t.TempDir()
	archivePath := filepath.Join(tempDir, "evil.zip")

	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}
	w := zip.NewWriter(f)
	entry, err := w.Create("../escaped.txt")
	if err != nil {
		t.Fatalf("Failed to add entry: %v", err)
	}
	entry.Write([]byte("nope"))
	w.Close()
	f.Close()

	if err := Extract(archivePath, filepath.Join(tempDir, "out"), nil); err == nil {
		t.Fatal("Extract() should reject entries outside the destination")
	}
	if _, err := os.Stat(filepath.Join(tempDir, "escaped.txt")); !os.IsNotExist(err) {
		t.Error("escaping entry was written")
	}
	if _, err := os.Stat(archivePath); err != nil {
		t.Errorf("archive should be kept when extraction fails: %v", err)
	}
}

func TestExtractInvalidArchive(t *testing.T) {
	tempDir := t.TempDir()
	archivePath := filepath.Join(tempDir, "broken.zip")
	if err := os.WriteFile(archivePath, []byte("not a zip"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if err := Extract(archivePath, tempDir, nil); err == nil {
		t.Error("Extract() on invalid archive should return error")
	}
}

func TestDestinationFor(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		expected string
	}{
		{"Directory archive", "Files.zip", filepath.Join("out", "Files")},
		{"Base archive", "Base.zip", "out"},
		{"Nested name", "Templates.zip", filepath.Join("out", "Templates")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := DestinationFor("out", tt.fileName); result != tt.expected {
				t.Errorf("DestinationFor(%s) = %s, want %s", tt.fileName, result, tt.expected)
			}
		})
	}
}

func TestIsZip(t *testing.T) {
	if !IsZip("Files.ZIP") {
		t.Error("IsZip(Files.ZIP) = false, want true")
	}
	if IsZip("database.bacpac") {
		t.Error("IsZip(database.bacpac) = true, want false")
	}
}

func TestCleanupTempFile(t *testing.T) {
	tempFile, err := os.CreateTemp("", "cleanup-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tempFile.Close()
	tempPath := tempFile.Name()

	if err := CleanupTempFile(tempPath); err != nil {
		t.Errorf("CleanupTempFile() error = %v", err)
	}
	if _, err := os.Stat(tempPath); !os.IsNotExist(err) {
		t.Errorf("File was not removed: %v", err)
	}
	if err := CleanupTempFile(tempPath); err != nil {
		t.Errorf("CleanupTempFile() on non-existent file error = %v", err)
	}
	if err := CleanupTempFile(""); err != nil {
		t.Errorf("CleanupTempFile() with empty path error = %v", err)
	}
}
