package infrastructure

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/media-fetch-go/internal/domain"
)

func setupTestRepo(t *testing.T) *SQLiteHistoryRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")
	repo, err := NewSQLiteHistoryRepository(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func succeededRecord(url string, platform domain.Platform, createdAt time.Time) *domain.FetchRecord {
	rec := domain.NewFetchRecord(url, platform)
	rec.CreatedAt = createdAt
	rec.MarkSucceeded(domain.NewBinaryAsset(platform, []byte("data"), "video/mp4", "a.mp4"), time.Second)
	return rec
}

func failedRecord(url string, platform domain.Platform, createdAt time.Time) *domain.FetchRecord {
	rec := domain.NewFetchRecord(url, platform)
	rec.CreatedAt = createdAt
	rec.MarkFailed(domain.ErrBlocked(platform, "slow down", nil), time.Second)
	return rec
}

func TestSQLiteHistoryRepository_CreateAndFind(t *testing.T) {
	repo := setupTestRepo(t)

	rec := succeededRecord("https://youtu.be/abc123", domain.PlatformYouTube, time.Now())
	require.NoError(t, repo.Create(rec))

	found, err := repo.FindByID(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.URL, found.URL)
	assert.Equal(t, domain.OutcomeSucceeded, found.Outcome)
	assert.Equal(t, domain.KindBinaryFile, found.Kind)
	assert.Equal(t, int64(4), found.SizeBytes)
	assert.Equal(t, "a.mp4", found.Filename)
}

func TestSQLiteHistoryRepository_FindByIDMissing(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.FindByID("nope")
	assert.True(t, errors.Is(err, domain.ErrRecordNotFound))
}

func TestSQLiteHistoryRepository_FindAllFiltersAndOrders(t *testing.T) {
	repo := setupTestRepo(t)
	base := time.Now().Add(-time.Hour)

	require.NoError(t, repo.Create(succeededRecord("https://youtu.be/1", domain.PlatformYouTube, base)))
	require.NoError(t, repo.Create(failedRecord("https://www.tiktok.com/@a/video/1", domain.PlatformTikTok, base.Add(time.Minute))))
	require.NoError(t, repo.Create(succeededRecord("https://youtu.be/2", domain.PlatformYouTube, base.Add(2*time.Minute))))

	all, err := repo.FindAll(domain.HistoryFilter{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "https://youtu.be/2", all[0].URL)

	youtube, err := repo.FindAll(domain.HistoryFilter{Platform: domain.PlatformYouTube}, 0)
	require.NoError(t, err)
	assert.Len(t, youtube, 2)

	failed, err := repo.FindAll(domain.HistoryFilter{Outcome: domain.OutcomeFailed}, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, domain.CategoryPlatformBlocked, failed[0].Category)
	assert.True(t, failed[0].Retryable)

	limited, err := repo.FindAll(domain.HistoryFilter{}, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteHistoryRepository_Delete(t *testing.T) {
	repo := setupTestRepo(t)

	rec := succeededRecord("https://youtu.be/abc123", domain.PlatformYouTube, time.Now())
	require.NoError(t, repo.Create(rec))
	require.NoError(t, repo.Delete(rec.ID))

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.True(t, errors.Is(repo.Delete(rec.ID), domain.ErrRecordNotFound))
}

func TestSQLiteHistoryRepository_GetStats(t *testing.T) {
	repo := setupTestRepo(t)
	now := time.Now()

	require.NoError(t, repo.Create(succeededRecord("https://youtu.be/1", domain.PlatformYouTube, now)))
	require.NoError(t, repo.Create(succeededRecord("https://youtu.be/2", domain.PlatformYouTube, now)))
	require.NoError(t, repo.Create(failedRecord("https://www.tiktok.com/@a/video/1", domain.PlatformTikTok, now)))

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Succeeded)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(2), stats.ByPlatform[domain.PlatformYouTube])
	assert.Equal(t, int64(1), stats.ByPlatform[domain.PlatformTikTok])
}
