package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smartbudget/internal/services"
)

// Result statuses carried by AnalysisResultMessage.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// AnalysisRequestMessage asks a worker to analyze one ledger.
type AnalysisRequestMessage struct {
	JobID string `json:"job_id"`

	// Source is "file", "sheets" or "inline". Location is the file path or
	// the spreadsheet ID; inline ledgers travel in CSV.
	Source   string `json:"source"`
	Location string `json:"location,omitempty"`
	Sheet    string `json:"sheet,omitempty"`
	CSV      string `json:"csv,omitempty"`

	// Zero keeps the worker defaults.
	Contamination float64 `json:"contamination,omitempty"`
	TopK          int     `json:"top_k,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// NewAnalysisRequest stamps a request for the given job. An empty jobID
// gets a random UUID.
func NewAnalysisRequest(jobID, source, location string) *AnalysisRequestMessage {
	if jobID == "" {
		jobID = uuid.NewString()
	}
	return &AnalysisRequestMessage{
		JobID:     jobID,
		Source:    source,
		Location:  location,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks the fields a worker needs before touching any source.
func (m *AnalysisRequestMessage) Validate() error {
	if m.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	switch m.Source {
	case "inline":
		if m.CSV == "" {
			return fmt.Errorf("csv is required for inline source")
		}
	case "file":
		if m.Location == "" {
			return fmt.Errorf("location is required for file source")
		}
	case "sheets":
	default:
		return fmt.Errorf("unknown source %q", m.Source)
	}
	if m.Contamination < 0 || m.TopK < 0 {
		return fmt.Errorf("contamination and top_k must not be negative")
	}
	return nil
}

func (m *AnalysisRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AnalysisRequestFromJSON(data []byte) (*AnalysisRequestMessage, error) {
	var msg AnalysisRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AnalysisResultMessage carries either a report or the reason it failed.
type AnalysisResultMessage struct {
	JobID       string           `json:"job_id"`
	Status      string           `json:"status"`
	Report      *services.Report `json:"report,omitempty"`
	Error       string           `json:"error,omitempty"`
	CompletedAt time.Time        `json:"completed_at"`
}

func NewCompletedResult(jobID string, report *services.Report) *AnalysisResultMessage {
	return &AnalysisResultMessage{
		JobID:       jobID,
		Status:      StatusCompleted,
		Report:      report,
		CompletedAt: time.Now().UTC(),
	}
}

func NewFailedResult(jobID string, err error) *AnalysisResultMessage {
	return &AnalysisResultMessage{
		JobID:       jobID,
		Status:      StatusFailed,
		Error:       err.Error(),
		CompletedAt: time.Now().UTC(),
	}
}

func (m *AnalysisResultMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AnalysisResultFromJSON decodes a result. The report is decoded into a
// generic form by callers that do not need typed access; see RawResult.
func AnalysisResultFromJSON(data []byte) (*RawResult, error) {
	var msg RawResult
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// RawResult is the decoded form of AnalysisResultMessage. The report stays
// raw JSON because the fitted artifacts it embeds are write only.
type RawResult struct {
	JobID       string          `json:"job_id"`
	Status      string          `json:"status"`
	Report      json.RawMessage `json:"report,omitempty"`
	Error       string          `json:"error,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
}
