package models

import "encoding/json"

// ImportBatch is a set of local files uploaded to one remote directory.
type ImportBatch struct {
	Files       []string `json:"files"`
	Destination string   `json:"destination"`
}

type UploadRequest struct {
	Destination string
	Files       []string
	Overwrite   bool
	CreateEmpty bool
}

type UploadResult struct {
	Destination string          `json:"destination"`
	Files       []string        `json:"files"`
	SizeBytes   int64           `json:"size_bytes"`
	Response    json.RawMessage `json:"response,omitempty"`
}

type ImportSummary struct {
	LocalPath      string         `json:"local_path"`
	Destination    string         `json:"destination"`
	Batches        []UploadResult `json:"batches"`
	TotalFiles     int            `json:"total_files"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	TotalSizeHuman string         `json:"total_size_human"`
	OperationTime  string         `json:"operation_time"`
	UploadDuration string         `json:"upload_duration"`
}
