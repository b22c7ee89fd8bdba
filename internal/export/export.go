// Package export downloads remote directories and files as archives and
// unpacks them into a local directory.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"dwcli/internal/archive"
	"dwcli/internal/gateway"
	"dwcli/internal/logging"
	"dwcli/internal/models"
	"dwcli/internal/progress"
	"dwcli/pkg/utils"
)

const (
	// SystemLogDirectory is excluded from archives unless logs are requested.
	SystemLogDirectory = "system/log"
	// CacheDirectory is never exported unless logs are requested.
	CacheDirectory = "cache.net"
	// RootFilesPath addresses the files directly under the storage root.
	RootFilesPath = "/."
)

const (
	reasonExcluded = "excluded by policy"
	reasonNoFiles  = "no files found"
)

type Gateway interface {
	ListDirectory(ctx context.Context, dirPath string, recursive, includeFiles bool) (*models.RemoteNode, error)
	Download(ctx context.Context, endpoint string, body models.DownloadRequest) (*gateway.Download, error)
	DownloadDatabase(ctx context.Context) (*gateway.Download, error)
}

type Engine struct {
	gw           Gateway
	out          io.Writer
	logger       *logging.Logger
	progressOpts []progress.Option
}

// NewEngine creates an export engine writing status and progress to out.
func NewEngine(gw Gateway, out io.Writer, logger *logging.Logger, progressOpts ...progress.Option) *Engine {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Engine{gw: gw, out: out, logger: logger, progressOpts: progressOpts}
}

// ResolveRequest builds the request for a user supplied remote path. A path
// with an extension is treated as a single file unless asDirectory is set.
func ResolveRequest(remotePath string, asFile, asDirectory, raw, includeLogs bool) models.ExportRequest {
	isFile := path.Ext(remotePath) != ""
	if asFile || asDirectory {
		isFile = asFile
	}

	if !isFile {
		return models.ExportRequest{
			RemotePath:       remotePath,
			Recursive:        true,
			Raw:              raw,
			ExcludeSystemLog: !includeLogs,
		}
	}

	parent := path.Dir(remotePath)
	if parent == "." {
		parent = "/"
	}
	return models.ExportRequest{
		RemotePath:        parent,
		Raw:               true,
		ExcludeSystemLog:  !includeLogs,
		ExplicitFileNames: []string{remotePath},
		SingleFile:        true,
	}
}

// EndpointFor picks the download endpoint. Only recursive directory exports
// use DirectoryDownload.
func EndpointFor(recursive, singleFile bool) string {
	if recursive && !singleFile {
		return gateway.EndpointDirectoryDownload
	}
	return gateway.EndpointFileDownload
}

// Excluded reports whether remotePath is skipped under the exclusion policy.
func Excluded(remotePath string, excludeSystemLog bool) bool {
	return excludeSystemLog && strings.Trim(remotePath, "/") == CacheDirectory
}

// Export runs one request to completion. The returned error is non-nil only
// for a failed outcome; skipped requests return a nil error.
func (e *Engine) Export(ctx context.Context, req models.ExportRequest, outPath string) (models.ExportResult, error) {
	start := time.Now()
	result := models.ExportResult{RemotePath: req.RemotePath}
	finish := func(outcome models.Outcome, err error) (models.ExportResult, error) {
		result.Outcome = outcome
		result.SizeHuman = utils.FormatBytes(result.SizeBytes)
		result.Duration = time.Since(start).Round(time.Millisecond).String()
		if err != nil {
			result.Error = err.Error()
		}
		return result, err
	}

	if Excluded(req.RemotePath, req.ExcludeSystemLog) {
		e.logger.Debug().Str("path", req.RemotePath).Msg("skipping excluded directory")
		result.Reason = reasonExcluded
		return finish(models.OutcomeSkipped, nil)
	}

	dl, err := e.request(ctx, req)
	if err != nil {
		return finish(models.OutcomeFailed, err)
	}

	name := req.ArchiveName
	if name == "" {
		name = dl.FileName
	}
	if name == "" {
		dl.Body.Close()
		fmt.Fprintf(e.out, "No files found in directory '%s', if you want to download all folders recursively include the -r flag\n", req.RemotePath)
		result.Reason = reasonNoFiles
		return finish(models.OutcomeSkipped, nil)
	}

	downloaded, size, err := e.stream(dl, outPath, filepath.Base(name))
	result.SizeBytes = size
	if err != nil {
		return finish(models.OutcomeFailed, err)
	}
	result.FileName = downloaded.DeclaredFileName
	result.LocalPath = downloaded.LocalFilePath

	if req.SingleFile {
		fmt.Fprintf(e.out, "Successfully downloaded: %s\n", downloaded.DeclaredFileName)
	} else {
		fmt.Fprintf(e.out, "Finished downloading %s Recursive=%t\n", displayName(req.RemotePath, "."), req.Recursive)
	}

	if req.Raw || !downloaded.IsZip {
		return finish(models.OutcomeDone, nil)
	}

	dest, err := e.extract(downloaded, outPath)
	if err != nil {
		return finish(models.OutcomeFailed, err)
	}
	result.ExtractedTo = dest
	result.LocalPath = ""
	return finish(models.OutcomeDone, nil)
}

func (e *Engine) request(ctx context.Context, req models.ExportRequest) (*gateway.Download, error) {
	body := models.DownloadRequest{
		DirectoryPath:      req.RemotePath,
		ExcludeDirectories: []string{},
	}
	if req.ExcludeSystemLog {
		body.ExcludeDirectories = []string{SystemLogDirectory}
	}

	endpoint := EndpointFor(req.Recursive, req.SingleFile)
	if endpoint == gateway.EndpointFileDownload {
		body.Ids = req.ExplicitFileNames
		if body.Ids == nil {
			body.Ids = []string{}
		}
	}

	if req.SingleFile {
		fileName := "unknown"
		if len(req.ExplicitFileNames) > 0 {
			fileName = path.Base(req.ExplicitFileNames[0])
		}
		fmt.Fprintf(e.out, "Downloading file: %s\n", fileName)
	} else {
		fmt.Fprintf(e.out, "Downloading %s Recursive=%t\n", displayName(req.RemotePath, "Base"), req.Recursive)
	}

	return e.gw.Download(ctx, endpoint, body)
}

// stream writes the download body to outPath/name.
func (e *Engine) stream(dl *gateway.Download, outPath, name string) (*models.DownloadedArchive, int64, error) {
	defer dl.Body.Close()

	if err := os.MkdirAll(outPath, 0755); err != nil {
		return nil, 0, fmt.Errorf("failed to create output directory %s: %w", outPath, err)
	}
	filePath, err := filepath.Abs(filepath.Join(outPath, name))
	if err != nil {
		return nil, 0, err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create %s: %w", filePath, err)
	}

	reporter := progress.Begin(e.out, e.progressOpts...)
	defer reporter.End()

	counter := &byteCounter{onWrite: func(received int64) {
		reporter.Update("Received:\t" + utils.FormatBytes(received))
	}}
	size, err := io.Copy(io.MultiWriter(file, counter), dl.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = archive.CleanupTempFile(filePath)
		return nil, size, fmt.Errorf("failed to download %s: %w", name, err)
	}

	return &models.DownloadedArchive{
		LocalFilePath:    filePath,
		DeclaredFileName: name,
		IsZip:            archive.IsZip(name),
	}, size, nil
}

func (e *Engine) extract(downloaded *models.DownloadedArchive, outPath string) (string, error) {
	fmt.Fprintf(e.out, "\nExtracting %s to %s\n", downloaded.DeclaredFileName, outPath)

	dest, err := filepath.Abs(archive.DestinationFor(outPath, downloaded.DeclaredFileName))
	if err != nil {
		return "", err
	}

	reporter := progress.Begin(e.out, e.progressOpts...)
	err = archive.Extract(downloaded.LocalFilePath, dest, func(processed, total, percent int) {
		reporter.Update(fmt.Sprintf("Extracted:\t%d of %d files (%d%%)", processed, total, percent))
	})
	reporter.End()
	if err != nil {
		return "", err
	}

	fmt.Fprintf(e.out, "Finished extracting %s to %s\n\n", downloaded.DeclaredFileName, outPath)
	return dest, nil
}

// ExportAll exports every top-level directory, then the root files as
// Base.zip. Directories are processed one at a time and a failed directory
// does not stop the batch; failures are returned together at the end.
func (e *Engine) ExportAll(ctx context.Context, outPath string, raw, includeLogs bool) (*models.ExportSummary, error) {
	start := time.Now()
	summary := &models.ExportSummary{
		OutPath:       outPath,
		Results:       []models.ExportResult{},
		OperationTime: utils.FormatTime(start),
	}

	root, err := e.gw.ListDirectory(ctx, "/", false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage root: %w", err)
	}

	var errs *multierror.Error
	for _, dir := range root.Dirs() {
		result, err := e.Export(ctx, models.ExportRequest{
			RemotePath:       dir.Name,
			Recursive:        true,
			Raw:              raw,
			ExcludeSystemLog: !includeLogs,
		}, outPath)
		summary.Add(result)
		if err != nil {
			e.logger.Warn().Err(err).Str("directory", dir.Name).Msg("export failed, continuing with next directory")
			errs = multierror.Append(errs, err)
		}
	}

	if names := root.FileNames(); len(names) > 0 {
		result, err := e.Export(ctx, models.ExportRequest{
			RemotePath:        RootFilesPath,
			Raw:               raw,
			ExcludeSystemLog:  !includeLogs,
			ExplicitFileNames: names,
			ArchiveName:       archive.BaseArchiveName,
		}, outPath)
		summary.Add(result)
		if err != nil {
			e.logger.Warn().Err(err).Msg("export of root files failed")
			errs = multierror.Append(errs, err)
		}
		if raw {
			fmt.Fprintln(e.out, `The files in the base "files" folder is in Base.zip, each directory in "files" is in its own zip`)
		}
	} else {
		summary.Add(models.ExportResult{
			RemotePath: RootFilesPath,
			Outcome:    models.OutcomeSkipped,
			Reason:     reasonNoFiles,
			SizeHuman:  utils.FormatBytes(0),
		})
	}

	summary.Duration = time.Since(start).Round(time.Millisecond).String()
	return summary, errs.ErrorOrNil()
}

// ExportDatabase streams the database export into outPath.
func (e *Engine) ExportDatabase(ctx context.Context, outPath string) (models.ExportResult, error) {
	start := time.Now()
	result := models.ExportResult{RemotePath: gateway.EndpointDatabaseDownload}

	fmt.Fprintln(e.out, "Downloading database")
	dl, err := e.gw.DownloadDatabase(ctx)
	if err == nil {
		var downloaded *models.DownloadedArchive
		downloaded, result.SizeBytes, err = e.stream(dl, outPath, filepath.Base(dl.FileName))
		if err == nil {
			result.FileName = downloaded.DeclaredFileName
			result.LocalPath = downloaded.LocalFilePath
			fmt.Fprintln(e.out, "Finished downloading")
		}
	}

	result.Outcome = models.OutcomeDone
	if err != nil {
		result.Outcome = models.OutcomeFailed
		result.Error = err.Error()
	}
	result.SizeHuman = utils.FormatBytes(result.SizeBytes)
	result.Duration = time.Since(start).Round(time.Millisecond).String()
	return result, err
}

func displayName(remotePath, rootName string) string {
	if remotePath == RootFilesPath {
		return rootName
	}
	return remotePath
}

type byteCounter struct {
	total   int64
	onWrite func(int64)
}

func (c *byteCounter) Write(p []byte) (int, error) {
	c.total += int64(len(p))
	c.onWrite(c.total)
	return len(p), nil
}
