// Package importer uploads local files and directory trees to remote storage.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"dwcli/internal/logging"
	"dwcli/internal/models"
	"dwcli/pkg/utils"
)

// ErrNoMatch is returned when a local path or pattern matches nothing.
var ErrNoMatch = errors.New("could not find any files with the name")

type Uploader interface {
	Upload(ctx context.Context, req models.UploadRequest) (*models.UploadResult, error)
}

type Options struct {
	Recursive   bool
	Overwrite   bool
	CreateEmpty bool
}

type Engine struct {
	up     Uploader
	out    io.Writer
	logger *logging.Logger
}

func NewEngine(up Uploader, out io.Writer, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Engine{up: up, out: out, logger: logger}
}

// ResolveWildcard resolves the base name of localPath against its parent
// directory. "*" matches any run of characters and "?" a single one. The
// first match in lexical order wins.
func ResolveWildcard(localPath string) (string, error) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", localPath, err)
	}

	base := filepath.Base(abs)
	if !strings.ContainsAny(base, "*?") {
		if _, err := os.Stat(abs); err != nil {
			return "", fmt.Errorf("%w %s", ErrNoMatch, localPath)
		}
		return abs, nil
	}

	pattern, err := wildcardPattern(base)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(abs)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w %s: %v", ErrNoMatch, localPath, err)
	}
	for _, entry := range entries {
		if pattern.MatchString(entry.Name()) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("%w %s", ErrNoMatch, localPath)
}

func wildcardPattern(wildcard string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range wildcard {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// Import uploads localPath into dest. A file is uploaded alone; a directory
// uploads its direct files, and with Recursive every level is mirrored under
// dest. The first failed upload aborts the import.
func (e *Engine) Import(ctx context.Context, localPath, dest string, opts Options) (*models.ImportSummary, error) {
	start := time.Now()
	resolved, err := ResolveWildcard(localPath)
	if err != nil {
		return nil, err
	}

	batches, err := Plan(resolved, dest, opts.Recursive)
	if err != nil {
		return nil, err
	}

	summary := &models.ImportSummary{
		LocalPath:     resolved,
		Destination:   dest,
		Batches:       []models.UploadResult{},
		OperationTime: utils.FormatTime(start),
	}

	uploadStart := time.Now()
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fmt.Fprintf(e.out, "Uploading files to %s\n", batch.Destination)
		for _, f := range batch.Files {
			fmt.Fprintln(e.out, f)
		}
		e.logger.Debug().Str("destination", batch.Destination).Int("files", len(batch.Files)).Msg("uploading batch")

		result, err := e.up.Upload(ctx, models.UploadRequest{
			Destination: batch.Destination,
			Files:       batch.Files,
			Overwrite:   opts.Overwrite,
			CreateEmpty: opts.CreateEmpty,
		})
		if err != nil {
			return nil, fmt.Errorf("upload to %s failed: %w", batch.Destination, err)
		}
		fmt.Fprintln(e.out, "Files uploaded")

		summary.Batches = append(summary.Batches, *result)
		summary.TotalFiles += len(result.Files)
		summary.TotalSizeBytes += result.SizeBytes
	}

	summary.TotalSizeHuman = utils.FormatBytes(summary.TotalSizeBytes)
	summary.UploadDuration = time.Since(uploadStart).Round(time.Millisecond).String()
	return summary, nil
}

// Plan lists the upload batches for root without sending anything. Levels
// without regular files produce no batch.
func Plan(root, dest string, recursive bool) ([]models.ImportBatch, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []models.ImportBatch{{Files: []string{root}, Destination: dest}}, nil
	}

	var batches []models.ImportBatch
	if err := planDirectory(root, dest, recursive, &batches); err != nil {
		return nil, err
	}
	return batches, nil
}

func planDirectory(dir, dest string, recursive bool, batches *[]models.ImportBatch) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var files, subdirs []string
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		// Stat follows symlinks so linked files and directories are included.
		info, err := os.Stat(full)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", full, err)
		}
		switch {
		case info.Mode().IsRegular():
			files = append(files, full)
		case info.IsDir():
			subdirs = append(subdirs, entry.Name())
		}
	}

	if len(files) > 0 {
		*batches = append(*batches, models.ImportBatch{Files: files, Destination: dest})
	}
	if !recursive {
		return nil
	}
	for _, name := range subdirs {
		if err := planDirectory(filepath.Join(dir, name), path.Join(dest, name), true, batches); err != nil {
			return err
		}
	}
	return nil
}
