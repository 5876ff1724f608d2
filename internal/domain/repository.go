package domain

import "errors"

// FetchRecordRepository defines the interface for fetch history persistence
type FetchRecordRepository interface {
	// Create stores a new record
	Create(record *FetchRecord) error

	// Delete deletes a record by ID
	Delete(id string) error

	// FindByID finds a record by ID
	FindByID(id string) (*FetchRecord, error)

	// FindAll finds records, newest first, with optional filters and limit (0 = unlimited)
	FindAll(filters HistoryFilter, limit int) ([]*FetchRecord, error)

	// Count returns the total number of records
	Count() (int64, error)

	// GetStats returns history statistics
	GetStats() (*FetchStats, error)
}

// HistoryFilter narrows a history listing
type HistoryFilter struct {
	Platform Platform
	Outcome  FetchOutcome
}

// FetchStats represents history statistics
type FetchStats struct {
	Total      int64              `json:"total"`
	Succeeded  int64              `json:"succeeded"`
	Failed     int64              `json:"failed"`
	ByPlatform map[Platform]int64 `json:"by_platform"`
}

// ErrRecordNotFound is returned when a history record does not exist
var ErrRecordNotFound = errors.New("record not found")
