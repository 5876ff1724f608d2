package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// FetchOutcome represents how a fetch ended
type FetchOutcome string

const (
	OutcomeSucceeded FetchOutcome = "succeeded"
	OutcomeFailed    FetchOutcome = "failed"
)

// FetchRecord represents one entry of the fetch history
type FetchRecord struct {
	ID         string        `json:"id" gorm:"primaryKey"`
	URL        string        `json:"url" gorm:"not null"`
	Platform   Platform      `json:"platform" gorm:"not null;index"`
	Outcome    FetchOutcome  `json:"outcome" gorm:"not null;index"`
	Kind       AssetKind     `json:"kind,omitempty"`
	Category   ErrorCategory `json:"category,omitempty"`
	Message    string        `json:"message,omitempty" gorm:"type:text"`
	Retryable  bool          `json:"retryable"`
	Filename   string        `json:"filename,omitempty"`
	SizeBytes  int64         `json:"size_bytes"`
	DurationMs int64         `json:"duration_ms"`
	CreatedAt  time.Time     `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for GORM
func (FetchRecord) TableName() string {
	return "fetch_records"
}

// NewFetchRecord creates a history entry for a request
func NewFetchRecord(url string, platform Platform) *FetchRecord {
	return &FetchRecord{
		ID:        uuid.New().String(),
		URL:       url,
		Platform:  platform,
		CreatedAt: time.Now(),
	}
}

// MarkSucceeded records a successful retrieval
func (r *FetchRecord) MarkSucceeded(asset *RetrievedAsset, elapsed time.Duration) {
	r.Outcome = OutcomeSucceeded
	r.Kind = asset.Kind
	r.Filename = asset.SuggestedFilename
	r.SizeBytes = int64(asset.Size())
	r.DurationMs = elapsed.Milliseconds()
}

// MarkFailed records a failed retrieval
func (r *FetchRecord) MarkFailed(err error, elapsed time.Duration) {
	r.Outcome = OutcomeFailed
	r.DurationMs = elapsed.Milliseconds()
	r.Message = err.Error()

	var re *RetrievalError
	if errors.As(err, &re) {
		r.Category = re.Category
		r.Retryable = re.Retryable
		r.Message = re.Message
	}
}

// IsFailed checks if the fetch failed
func (r *FetchRecord) IsFailed() bool {
	return r.Outcome == OutcomeFailed
}

// ValidateOutcome checks if an outcome is valid
func ValidateOutcome(outcome FetchOutcome) bool {
	return outcome == OutcomeSucceeded || outcome == OutcomeFailed
}
