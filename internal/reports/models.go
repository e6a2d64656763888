package reports

import (
	"time"

	"github.com/fdg312/nutricart/internal/nutrition"
	"github.com/google/uuid"
)

// Report represents a generated report metadata
type Report struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Format    string // "pdf" or "csv"
	ObjectKey *string
	SizeBytes int64
	ItemCount int
	Status    string // "ready" or "failed"
	Error     *string
	CreatedAt time.Time
	UpdatedAt time.Time
	Data      []byte // Only used in memory mode
}

// CreateReportRequest is the body of POST /v1/reports
type CreateReportRequest struct {
	Items             map[string]int         `json:"items"`
	Profile           *nutrition.UserProfile `json:"profile,omitempty"`
	Format            string                 `json:"format"` // "pdf" or "csv"
	IncludeSuggestion bool                   `json:"include_suggestion"`
}

// ReportDTO is the response representation of a report
type ReportDTO struct {
	ID          uuid.UUID `json:"id"`
	Format      string    `json:"format"`
	ItemCount   int       `json:"item_count"`
	DownloadURL string    `json:"download_url"`
	SizeBytes   int64     `json:"size_bytes"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportsResponse is the list response
type ReportsResponse struct {
	Reports []ReportDTO `json:"reports"`
}

// Constants for validation
const (
	FormatPDF = "pdf"
	FormatCSV = "csv"

	StatusReady  = "ready"
	StatusFailed = "failed"
)

func contentType(format string) string {
	if format == FormatCSV {
		return "text/csv"
	}
	return "application/pdf"
}
