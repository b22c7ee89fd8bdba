package gateway

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-retryablehttp"

	"dwcli/internal/models"
	"dwcli/internal/progress"
)

// Upload sends req.Files as one multipart batch into req.Destination.
// Missing remote directories are always created.
func (c *Client) Upload(ctx context.Context, req models.UploadRequest) (*models.UploadResult, error) {
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("upload to %s: no files in batch", req.Destination)
	}

	var total int64
	for _, path := range req.Files {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		total += info.Size()
	}

	query := url.Values{
		"createEmptyFiles":         {strconv.FormatBool(req.CreateEmpty)},
		"createMissingDirectories": {"true"},
	}

	boundary := multipart.NewWriter(io.Discard).Boundary()
	var pipes []*io.PipeReader
	defer func() {
		for _, pr := range pipes {
			pr.Close()
		}
	}()

	// The body is rebuilt for every attempt the retry client makes.
	body := retryablehttp.ReaderFunc(func() (io.Reader, error) {
		pr, pw := io.Pipe()
		pipes = append(pipes, pr)
		bar := progress.NewByteBar(c.progressOut, total, "Uploading")
		go func() {
			pw.CloseWithError(writeMultipart(pw, boundary, req, bar))
		}()
		return pr, nil
	})

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(EndpointUpload, query), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)

	resp, err := c.do("upload to "+req.Destination, httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := decodeUploadResponse(resp)
	if err != nil {
		return nil, err
	}

	return &models.UploadResult{
		Destination: req.Destination,
		Files:       req.Files,
		SizeBytes:   total,
		Response:    raw,
	}, nil
}

func writeMultipart(w io.Writer, boundary string, req models.UploadRequest, bar io.Writer) error {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(boundary); err != nil {
		return err
	}

	fields := [][2]string{
		{"path", req.Destination},
		{"skipExistingFiles", strconv.FormatBool(!req.Overwrite)},
		{"allowOverwrite", strconv.FormatBool(req.Overwrite)},
	}
	for _, field := range fields {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return err
		}
	}

	for _, path := range req.Files {
		if err := writeFilePart(mw, path, bar); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFilePart(mw *multipart.Writer, path string, bar io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	part, err := mw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, io.TeeReader(file, bar))
	return err
}
