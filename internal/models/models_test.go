package models

import (
	"encoding/json"
	"testing"
)

func TestRemoteNodeAbsentBranches(t *testing.T) {
	var resp DirectoryListResponse
	if err := json.Unmarshal([]byte(`{"model":{"name":"Files"}}`), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	node := resp.Model
	if node.Dirs() == nil || len(node.Dirs()) != 0 {
		t.Errorf("Dirs() = %v, want empty slice", node.Dirs())
	}
	if node.FileRefs() == nil || len(node.FileRefs()) != 0 {
		t.Errorf("FileRefs() = %v, want empty slice", node.FileRefs())
	}
	if node.HasFiles() {
		t.Error("HasFiles() = true for a node without files")
	}
}

func TestRemoteNodeFileNames(t *testing.T) {
	var resp DirectoryListResponse
	payload := `{"model":{"name":"/","directories":[{"name":"Images"}],"files":{"data":[{"name":"a.txt"},{"name":"b.txt"}]}}}`
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	names := resp.Model.FileNames()
	if len(names) != 2 || names[0] != "a.txt" || names[1] != "b.txt" {
		t.Errorf("FileNames() = %v", names)
	}
	if len(resp.Model.Dirs()) != 1 || resp.Model.Dirs()[0].Name != "Images" {
		t.Errorf("Dirs() = %v", resp.Model.Dirs())
	}
}

func TestTransferCredentialValidate(t *testing.T) {
	tests := []struct {
		name    string
		cred    TransferCredential
		wantErr bool
	}{
		{"valid https", TransferCredential{Protocol: "https", Host: "example.com", BearerToken: "k"}, false},
		{"valid http", TransferCredential{Protocol: "http", Host: "localhost:8080", BearerToken: "k"}, false},
		{"ftp", TransferCredential{Protocol: "ftp", Host: "example.com", BearerToken: "k"}, true},
		{"no host", TransferCredential{Protocol: "https", BearerToken: "k"}, true},
		{"no token", TransferCredential{Protocol: "https", Host: "example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cred.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	cred := TransferCredential{Protocol: "https", Host: "example.com"}
	if got := cred.BaseURL(); got != "https://example.com" {
		t.Errorf("BaseURL() = %s", got)
	}
}

func TestExportSummaryAdd(t *testing.T) {
	var s ExportSummary
	for _, o := range []Outcome{OutcomeDone, OutcomeSkipped, OutcomeDone, OutcomeFailed} {
		s.Add(ExportResult{Outcome: o})
	}
	if s.Done != 2 || s.Skipped != 1 || s.Failed != 1 || len(s.Results) != 4 {
		t.Errorf("summary = %+v", s)
	}
}

func TestDownloadRequestJSON(t *testing.T) {
	data, err := json.Marshal(DownloadRequest{DirectoryPath: "/Images", ExcludeDirectories: []string{}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if got := string(data); got != `{"DirectoryPath":"/Images","ExcludeDirectories":[]}` {
		t.Errorf("Marshal() = %s", got)
	}
}
