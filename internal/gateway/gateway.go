// Package gateway issues the authenticated admin API calls used to list,
// download and upload files.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"dwcli/internal/logging"
	"dwcli/internal/models"
)

const (
	EndpointDirectoryAll      = "DirectoryAll"
	EndpointDirectoryDownload = "DirectoryDownload"
	EndpointFileDownload      = "FileDownload"
	EndpointDatabaseDownload  = "DatabaseDownload"
	EndpointUpload            = "Upload"

	apiPrefix = "/Admin/Api/"

	// maxErrorBody bounds how much of a failed response is kept for reporting.
	maxErrorBody = 64 << 10
)

// ErrNoAttachment is returned when a database download carries no attachment.
var ErrNoAttachment = errors.New("response has no attachment, check the user's database permissions")

// RemoteError is a non-success response from the backend.
type RemoteError struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s failed: status %s", e.Op, e.Status)
	if body := strings.TrimSpace(e.Body); body != "" {
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		msg += ": " + body
	}
	return msg
}

type Options struct {
	RetryMax int
	Insecure bool
	// ProgressOut receives upload progress bars; nil discards them.
	ProgressOut io.Writer
	Logger      *logging.Logger
}

// Client is the only component that talks to the backend.
type Client struct {
	httpClient  *retryablehttp.Client
	baseURL     string
	token       string
	progressOut io.Writer
	logger      *logging.Logger
}

func New(cred models.TransferCredential, opts Options) (*Client, error) {
	if err := cred.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	progressOut := opts.ProgressOut
	if progressOut == nil {
		progressOut = io.Discard
	}

	return &Client{
		httpClient:  newRetryClient(NewHTTPClient(cred.Protocol, opts.Insecure), opts.RetryMax, logger),
		baseURL:     strings.TrimSuffix(cred.BaseURL(), "/"),
		token:       cred.BearerToken,
		progressOut: progressOut,
		logger:      logger,
	}, nil
}

// Download is an open download stream. The caller must close Body.
type Download struct {
	// FileName is declared by Content-Disposition; empty when the header is missing.
	FileName    string
	Disposition string
	Size        int64
	Body        io.ReadCloser
}

func (c *Client) endpointURL(endpoint string, query url.Values) string {
	u := c.baseURL + apiPrefix + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do sends req and turns any non-2xx response into a *RemoteError.
func (c *Client) do(op string, req *retryablehttp.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("op", op).Msg("request failed")
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		remoteErr := &RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
		c.logger.Error().Str("op", op).Int("status", resp.StatusCode).Msg("backend returned an error")
		c.logger.Debug().Str("op", op).Str("body", string(body)).Msg("error response body")
		return nil, remoteErr
	}

	return resp, nil
}

// ListDirectory returns the directory tree rooted at dirPath.
func (c *Client) ListDirectory(ctx context.Context, dirPath string, recursive, includeFiles bool) (*models.RemoteNode, error) {
	if dirPath == "" {
		dirPath = "/"
	}
	query := url.Values{
		"DirectoryPath": {dirPath},
		"recursive":     {strconv.FormatBool(recursive)},
		"includeFiles":  {strconv.FormatBool(includeFiles)},
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL(EndpointDirectoryAll, query), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do("list directory", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var listing models.DirectoryListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode directory listing: %w", err)
	}
	return &listing.Model, nil
}

// Download posts body to a download endpoint and returns the open stream.
func (c *Client) Download(ctx context.Context, endpoint string, body models.DownloadRequest) (*Download, error) {
	if body.DirectoryPath == "" {
		body.DirectoryPath = "/"
	}
	if body.ExcludeDirectories == nil {
		body.ExcludeDirectories = []string{}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(endpoint, nil), payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do("download "+body.DirectoryPath, req)
	if err != nil {
		return nil, err
	}
	return newDownload(resp), nil
}

// DownloadDatabase streams the database export. A response without an
// attachment disposition returns ErrNoAttachment.
func (c *Client) DownloadDatabase(ctx context.Context) (*Download, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(EndpointDatabaseDownload, nil), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do("database download", req)
	if err != nil {
		return nil, err
	}

	dl := newDownload(resp)
	if dl.FileName == "" || !strings.Contains(strings.ToLower(dl.Disposition), "attachment") {
		body, _ := io.ReadAll(io.LimitReader(dl.Body, maxErrorBody))
		dl.Body.Close()
		c.logger.Debug().Str("body", string(body)).Msg("database download response")
		return nil, ErrNoAttachment
	}
	return dl, nil
}

func newDownload(resp *http.Response) *Download {
	disposition := resp.Header.Get("Content-Disposition")
	return &Download{
		FileName:    FileNameFromDisposition(disposition),
		Disposition: disposition,
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}
}

// FileNameFromDisposition extracts the filename parameter of a
// Content-Disposition header. "+" is decoded to a space.
func FileNameFromDisposition(header string) string {
	if header == "" {
		return ""
	}

	var name string
	if _, params, err := mime.ParseMediaType(header); err == nil {
		name = params["filename"]
	}
	if name == "" {
		parts := strings.Split(header, ";")
		if len(parts) < 2 {
			return ""
		}
		kv := strings.SplitN(parts[1], "=", 2)
		if len(kv) < 2 {
			return ""
		}
		name = strings.Trim(strings.TrimSpace(kv[1]), `"`)
	}
	return strings.ReplaceAll(name, "+", " ")
}

func decodeUploadResponse(resp *http.Response) (json.RawMessage, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if json.Valid(body) {
		return json.RawMessage(body), nil
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(quoted), nil
}
