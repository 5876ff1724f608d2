package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

// SQLiteHistoryRepository implements FetchRecordRepository using SQLite
type SQLiteHistoryRepository struct {
	db *gorm.DB
}

// NewSQLiteHistoryRepository opens (and creates) the history database
func NewSQLiteHistoryRepository(dbPath string) (*SQLiteHistoryRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.FetchRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteHistoryRepository{db: db}, nil
}

// Create stores a new record
func (r *SQLiteHistoryRepository) Create(record *domain.FetchRecord) error {
	return r.db.Create(record).Error
}

// Delete deletes a record by ID
func (r *SQLiteHistoryRepository) Delete(id string) error {
	res := r.db.Delete(&domain.FetchRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// FindByID finds a record by ID
func (r *SQLiteHistoryRepository) FindByID(id string) (*domain.FetchRecord, error) {
	var record domain.FetchRecord
	err := r.db.First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindAll finds records newest first
func (r *SQLiteHistoryRepository) FindAll(filters domain.HistoryFilter, limit int) ([]*domain.FetchRecord, error) {
	var records []*domain.FetchRecord
	query := r.db.Model(&domain.FetchRecord{})

	if filters.Platform != "" {
		query = query.Where("platform = ?", filters.Platform)
	}
	if filters.Outcome != "" {
		query = query.Where("outcome = ?", filters.Outcome)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Order("created_at DESC").Find(&records).Error
	return records, err
}

// Count returns the total number of records
func (r *SQLiteHistoryRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&domain.FetchRecord{}).Count(&count).Error
	return count, err
}

// GetStats returns history statistics
func (r *SQLiteHistoryRepository) GetStats() (*domain.FetchStats, error) {
	stats := &domain.FetchStats{ByPlatform: make(map[domain.Platform]int64)}

	if err := r.db.Model(&domain.FetchRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	outcomeCounts := []struct {
		Outcome domain.FetchOutcome
		Count   int64
	}{}
	if err := r.db.Model(&domain.FetchRecord{}).
		Select("outcome, count(*) as count").
		Group("outcome").
		Scan(&outcomeCounts).Error; err != nil {
		return nil, err
	}
	for _, oc := range outcomeCounts {
		switch oc.Outcome {
		case domain.OutcomeSucceeded:
			stats.Succeeded = oc.Count
		case domain.OutcomeFailed:
			stats.Failed = oc.Count
		}
	}

	platformCounts := []struct {
		Platform domain.Platform
		Count    int64
	}{}
	if err := r.db.Model(&domain.FetchRecord{}).
		Select("platform, count(*) as count").
		Group("platform").
		Scan(&platformCounts).Error; err != nil {
		return nil, err
	}
	for _, pc := range platformCounts {
		stats.ByPlatform[pc.Platform] = pc.Count
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteHistoryRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
