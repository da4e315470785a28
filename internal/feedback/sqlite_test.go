package feedback

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/health-triage-server/internal/domain"
)

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "feedback-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)

	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "feedback-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewSQLiteStore(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	return store
}

func TestSQLiteStore_Create(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	rating := 4
	fb := &domain.Feedback{
		PredictionID:    42,
		IsAccurate:      true,
		ActualDiagnosis: "Common Cold",
		Rating:          &rating,
		Comments:        "Matched what my doctor said",
	}

	err := store.Create(ctx, fb)

	require.NoError(t, err)
	assert.NotZero(t, fb.ID, "ID should be assigned")
	assert.False(t, fb.CreatedAt.IsZero(), "CreatedAt should be set")
}

func TestSQLiteStore_Create_Duplicate(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	fb := &domain.Feedback{PredictionID: 7, IsAccurate: true}
	require.NoError(t, store.Create(ctx, fb))

	dup := &domain.Feedback{PredictionID: 7, IsAccurate: false}
	err := store.Create(ctx, dup)

	assert.ErrorIs(t, err, domain.ErrDuplicateFeedback)
}

func TestSQLiteStore_GetByPredictionID(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	fb := &domain.Feedback{
		PredictionID: 11,
		IsAccurate:   false,
		Comments:     "Turned out to be allergies",
	}
	require.NoError(t, store.Create(ctx, fb))

	got, err := store.GetByPredictionID(ctx, 11)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(11), got.PredictionID)
	assert.False(t, got.IsAccurate)
	assert.Equal(t, "Turned out to be allergies", got.Comments)
	assert.Nil(t, got.Rating)

	missing, err := store.GetByPredictionID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteStore_ListByPredictionIDs(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, store.Create(ctx, &domain.Feedback{PredictionID: id, IsAccurate: id != 2}))
	}

	got, err := store.ListByPredictionIDs(ctx, []int64{1, 3, 99})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, int64(1))
	assert.Contains(t, got, int64(3))

	empty, err := store.ListByPredictionIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStore_SummaryForPredictions(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	r1, r2 := 5, 3
	require.NoError(t, store.Create(ctx, &domain.Feedback{PredictionID: 1, IsAccurate: true, Rating: &r1}))
	require.NoError(t, store.Create(ctx, &domain.Feedback{PredictionID: 2, IsAccurate: false, Rating: &r2}))
	require.NoError(t, store.Create(ctx, &domain.Feedback{PredictionID: 3, IsAccurate: true}))

	summary, err := store.SummaryForPredictions(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.AccurateCount)
	assert.InDelta(t, 4.0, summary.AverageRating, 0.001)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
