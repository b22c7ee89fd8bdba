package models

import (
	"errors"
	"fmt"
)

// RemoteNode is a directory entry returned by the DirectoryAll endpoint.
// Directories and Files may be absent in the payload; use Dirs and FileRefs.
type RemoteNode struct {
	Name        string         `json:"name"`
	Directories []RemoteNode   `json:"directories,omitempty"`
	Files       RemoteFileList `json:"files"`
}

type RemoteFileList struct {
	Data []RemoteFileRef `json:"data"`
}

type RemoteFileRef struct {
	Name string `json:"name"`
}

// Dirs never returns nil.
func (n RemoteNode) Dirs() []RemoteNode {
	if n.Directories == nil {
		return []RemoteNode{}
	}
	return n.Directories
}

// FileRefs never returns nil.
func (n RemoteNode) FileRefs() []RemoteFileRef {
	if n.Files.Data == nil {
		return []RemoteFileRef{}
	}
	return n.Files.Data
}

func (n RemoteNode) HasFiles() bool {
	return len(n.Files.Data) > 0
}

// FileNames lists the names of the files directly under n.
func (n RemoteNode) FileNames() []string {
	names := make([]string, 0, len(n.Files.Data))
	for _, f := range n.Files.Data {
		names = append(names, f.Name)
	}
	return names
}

type DirectoryListResponse struct {
	Model RemoteNode `json:"model"`
}

// TransferCredential is the resolved environment and user for one invocation.
type TransferCredential struct {
	Protocol    string
	Host        string
	BearerToken string
}

func (c TransferCredential) BaseURL() string {
	return c.Protocol + "://" + c.Host
}

func (c TransferCredential) Validate() error {
	switch c.Protocol {
	case "http", "https":
	default:
		return fmt.Errorf("unsupported protocol %q, expected http or https", c.Protocol)
	}
	if c.Host == "" {
		return errors.New("host is not set, configure DW_HOST or pass --host")
	}
	if c.BearerToken == "" {
		return errors.New("api key is not set, run login and configure DW_API_KEY or pass --api-key")
	}
	return nil
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	Command   string `json:"command"`
}
