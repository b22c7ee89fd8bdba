// Package archive extracts downloaded zip archives and builds new ones.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// BaseArchiveName is the archive holding the files at the storage root. It
// extracts into the output directory itself.
const BaseArchiveName = "Base.zip"

// EntryFunc is called after each entry with the processed count, the entry
// total and the floored percentage.
type EntryFunc func(processed, total, percent int)

// DestinationFor returns where fileName is extracted under outPath.
func DestinationFor(outPath, fileName string) string {
	name := strings.TrimSuffix(fileName, ".zip")
	if name == "Base" {
		return outPath
	}
	return filepath.Join(outPath, name)
}

// IsZip reports whether fileName looks like a zip archive.
func IsZip(fileName string) bool {
	return strings.EqualFold(filepath.Ext(fileName), ".zip")
}

// Extract unpacks archivePath into dest and removes the archive afterwards.
// Removal failures are ignored.
func Extract(archivePath, dest string, onEntry EntryFunc) error {
	if err := extract(archivePath, dest, onEntry); err != nil {
		return err
	}
	_ = CleanupTempFile(archivePath)
	return nil
}

func extract(archivePath, dest string, onEntry EntryFunc) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	defer reader.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("failed to resolve destination %s: %w", dest, err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("failed to create destination %s: %w", root, err)
	}

	total := len(reader.File)
	for i, file := range reader.File {
		if err := extractEntry(file, root); err != nil {
			return fmt.Errorf("failed to extract %s: %w", file.Name, err)
		}
		if onEntry != nil {
			processed := i + 1
			onEntry(processed, total, processed*100/total)
		}
	}
	return nil
}

func extractEntry(file *zip.File, root string) error {
	target := filepath.Join(root, filepath.FromSlash(file.Name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return fmt.Errorf("entry escapes destination directory")
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// Create writes paths (files or directory trees) into a new zip at outputPath.
func Create(paths []string, outputPath string) error {
	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer outFile.Close()

	zipWriter := zip.NewWriter(outFile)
	for _, path := range paths {
		if err := addToArchive(zipWriter, path); err != nil {
			zipWriter.Close()
			return fmt.Errorf("failed to add %s to archive: %w", path, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return outFile.Close()
}

func addToArchive(zipWriter *zip.Writer, sourcePath string) error {
	return filepath.Walk(sourcePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}

		if sourcePath == path {
			header.Name = filepath.Base(path)
		} else {
			relPath, err := filepath.Rel(filepath.Dir(sourcePath), path)
			if err != nil {
				return err
			}
			header.Name = relPath
		}
		header.Name = filepath.ToSlash(header.Name)
		header.Method = zip.Deflate

		writer, err := zipWriter.CreateHeader(header)
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(writer, file)
		return err
	})
}

func CleanupTempFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to cleanup temporary file %s: %w", path, err)
	}
	return nil
}
