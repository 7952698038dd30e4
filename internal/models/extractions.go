package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BerylCAtieno/airline-extractor/internal/table"
)

// Extraction run statuses.
const (
	StatusCompleted = "completed"
	StatusNoData    = "no_data"
)

// Extraction is the stored record of one extraction request.
type Extraction struct {
	ID              string     `json:"id" db:"id"`
	Airline         string     `json:"airline" db:"airline"`
	Status          string     `json:"status" db:"status"`
	Documents       int        `json:"documents" db:"documents"`
	FailedDocuments int        `json:"failed_documents" db:"failed_documents"`
	EmptyDocuments  int        `json:"empty_documents" db:"empty_documents"`
	TotalRows       int        `json:"total_rows" db:"total_rows"`
	Columns         StringList `json:"columns" db:"columns"`
	Issues          IssueList  `json:"issues" db:"issues"`
	ExportKey       string     `json:"-" db:"export_key"`
	ExportFilename  string     `json:"export_filename" db:"export_filename"`
	ExportSize      int64      `json:"export_size" db:"export_size"`
	DurationMS      int64      `json:"duration_ms" db:"duration_ms"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// DocumentIssue describes a document that failed or produced no rows.
// Aggregation issues carry no filename.
type DocumentIssue struct {
	Filename string `json:"filename,omitempty"`
	Stage    string `json:"stage"`
	Error    string `json:"error"`
	Warning  bool   `json:"warning,omitempty"`
}

// StringList is stored as a JSON array in a TEXT column.
type StringList []string

func (l StringList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *StringList) Scan(src any) error          { return jsonScan(src, l) }

// IssueList is stored as a JSON array in a TEXT column.
type IssueList []DocumentIssue

func (l IssueList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *IssueList) Scan(src any) error          { return jsonScan(src, l) }

func jsonValue[T any](v []T) (driver.Value, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(src, dst any) error {
	switch s := src.(type) {
	case nil:
		return nil
	case string:
		return json.Unmarshal([]byte(s), dst)
	case []byte:
		return json.Unmarshal(s, dst)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dst)
	}
}

// UploadedFile is one file part of an extraction request.
type UploadedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExtractionRequest struct {
	Airline string
	Files   []UploadedFile
}

type ExtractionResponse struct {
	ID             string          `json:"id"`
	Airline        string          `json:"airline"`
	Columns        []string        `json:"columns"`
	Rows           [][]table.Value `json:"rows"`
	TotalRows      int             `json:"total_rows"`
	PreviewRows    int             `json:"preview_rows"`
	Truncated      bool            `json:"truncated"`
	Documents      int             `json:"documents"`
	Failures       []DocumentIssue `json:"failures"`
	Warnings       []DocumentIssue `json:"warnings"`
	ExportFilename string          `json:"export_filename"`
	CreatedAt      time.Time       `json:"created_at"`
	Message        string          `json:"message"`
}

// ExtractionResult is what the service hands back to the transport: the
// JSON response plus the workbook for callers that download it directly.
type ExtractionResult struct {
	Response *ExtractionResponse
	Workbook []byte
}

type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type AirlineInfo struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Columns []string `json:"columns"`
}
