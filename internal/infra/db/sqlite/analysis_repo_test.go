package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/argus/internal/domain/analysis"
)

func openTestRepo(t *testing.T) *AnalysisRepository {
	t.Helper()
	db, err := Connect(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewAnalysisRepository(db)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func detection(t *testing.T) domain.Record {
	t.Helper()
	r, err := domain.NewRecord("photo1.jpg", domain.TypeObjectDetection, "keys",
		"Found 2 instance(s) of 'keys' in the image.",
		time.Date(2026, 10, 15, 8, 30, 15, 123456789, time.UTC))
	require.NoError(t, err)
	return r
}

func TestSaveAndFindRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, detection(t))
	require.NoError(t, err)
	assert.Equal(t, domain.ID(1), saved.ID)

	got, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.FileName, got.FileName)
	assert.Equal(t, saved.AnalysisType, got.AnalysisType)
	assert.Equal(t, saved.TargetObject, got.TargetObject)
	assert.Equal(t, saved.Result, got.Result)
	assert.True(t, saved.CreatedAt.Equal(got.CreatedAt))
}

func TestNullTargetRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	rec, err := domain.NewRecord("room.png", domain.TypeGeneralAnalysis, "", "- cup\n", time.Now().UTC())
	require.NoError(t, err)

	saved, err := repo.Save(context.Background(), rec)
	require.NoError(t, err)

	got, err := repo.FindByID(context.Background(), saved.ID)
	require.NoError(t, err)
	_, ok := got.TargetObject.Get()
	assert.False(t, ok)
}

func TestFindMissing(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.FindByID(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveRejectsPersisted(t *testing.T) {
	repo := openTestRepo(t)
	saved, err := repo.Save(context.Background(), detection(t))
	require.NoError(t, err)

	_, err = repo.Save(context.Background(), saved)
	assert.ErrorIs(t, err, domain.ErrAlreadyPersisted)
}

func TestSaveWithoutSchemaIsPersistenceError(t *testing.T) {
	db, err := Connect(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = NewAnalysisRepository(db).Save(context.Background(), detection(t))
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestConcurrentSavesFileBacked(t *testing.T) {
	db, err := Connect(context.Background(), filepath.Join(t.TempDir(), "argus.db"))
	require.NoError(t, err)
	defer db.Close()
	repo := NewAnalysisRepository(db)
	require.NoError(t, repo.EnsureSchema(context.Background()))

	const n = 50
	var (
		mu  sync.Mutex
		ids = map[domain.ID]bool{}
		wg  sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			saved, err := repo.Save(context.Background(), detection(t))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[saved.ID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, ids, n)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)
}

func TestPaginate(t *testing.T) {
	repo := openTestRepo(t)
	for i := 0; i < 3; i++ {
		_, err := repo.Save(context.Background(), detection(t))
		require.NoError(t, err)
	}

	page, err := repo.Paginate(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, domain.ID(3), page[0].ID)
	assert.Equal(t, domain.ID(2), page[1].ID)
}
