package domain

import "time"

type ScanDirection string

const (
	ScanForward  ScanDirection = "FORWARD"
	ScanBackward ScanDirection = "BACKWARD"
)

type SortOrder string

const (
	SortAscending  SortOrder = "ASCENDING"
	SortDescending SortOrder = "DESCENDING"
)

const DefaultTranscriptPageSize = 30

// TranscriptRequest describes one page of history. StartPositionID is an exclusive item cursor.
type TranscriptRequest struct {
	ScanDirection   ScanDirection
	SortOrder       SortOrder
	MaxResults      int
	NextToken       string
	StartPositionID string
}

// DefaultTranscriptRequest returns the newest page, oldest item first.
func DefaultTranscriptRequest() TranscriptRequest {
	return TranscriptRequest{
		ScanDirection: ScanBackward,
		SortOrder:     SortAscending,
		MaxResults:    DefaultTranscriptPageSize,
	}
}

type TranscriptResponse struct {
	InitialContactID string
	NextToken        string
	Items            []TranscriptItem
}

// UploadTarget is the pre-signed location attachment bytes are uploaded to.
type UploadTarget struct {
	AttachmentID string
	URL          string
	URLExpiry    *time.Time
	Headers      map[string]string
}
