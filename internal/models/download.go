package models

// ExportRequest describes one download against the admin API.
// ExplicitFileNames is only set in single-file mode or for the root file set.
type ExportRequest struct {
	RemotePath        string   `json:"remote_path"`
	Recursive         bool     `json:"recursive"`
	Raw               bool     `json:"raw"`
	ExcludeSystemLog  bool     `json:"exclude_system_log"`
	ExplicitFileNames []string `json:"explicit_file_names,omitempty"`
	SingleFile        bool     `json:"single_file"`
	ArchiveName       string   `json:"archive_name,omitempty"`
}

type DownloadRequest struct {
	DirectoryPath      string   `json:"DirectoryPath"`
	ExcludeDirectories []string `json:"ExcludeDirectories"`
	Ids                []string `json:"Ids,omitempty"`
}

type DownloadedArchive struct {
	LocalFilePath    string
	DeclaredFileName string
	IsZip            bool
}

type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

type ExportResult struct {
	RemotePath  string  `json:"remote_path"`
	Outcome     Outcome `json:"outcome"`
	Reason      string  `json:"reason,omitempty"`
	FileName    string  `json:"file_name,omitempty"`
	LocalPath   string  `json:"local_path,omitempty"`
	ExtractedTo string  `json:"extracted_to,omitempty"`
	SizeBytes   int64   `json:"size_bytes"`
	SizeHuman   string  `json:"size_human"`
	Duration    string  `json:"duration"`
	Error       string  `json:"error,omitempty"`
}

type ExportSummary struct {
	OutPath       string         `json:"out_path"`
	Results       []ExportResult `json:"results"`
	Done          int            `json:"done"`
	Skipped       int            `json:"skipped"`
	Failed        int            `json:"failed"`
	OperationTime string         `json:"operation_time"`
	Duration      string         `json:"duration"`
}

// Add records r and updates the outcome counters.
func (s *ExportSummary) Add(r ExportResult) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeDone:
		s.Done++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}
