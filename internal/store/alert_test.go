package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertRepository_CreateEnd(t *testing.T) {
	repo := newTestStore(t).Alerts()

	e := &AlertEvent{PeakSpan: 200, SafeDistance: 2, Unit: "Meter", ThresholdMeters: 2}
	require.NoError(t, repo.Create(e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.StartedAt.IsZero())

	got, err := repo.GetByID(e.ID)
	require.NoError(t, err)
	assert.True(t, got.Active())
	assert.Equal(t, 200.0, got.PeakSpan)

	end := e.StartedAt.Add(3 * time.Second)
	require.NoError(t, repo.End(e.ID, end, 250))

	got, err = repo.GetByID(e.ID)
	require.NoError(t, err)
	require.False(t, got.Active())
	assert.True(t, got.EndedAt.Equal(end))
	assert.Equal(t, 250.0, got.PeakSpan)

	// Ending twice fails.
	assert.ErrorIs(t, repo.End(e.ID, end, 300), ErrNotFound)
}

func TestAlertRepository_EndKeepsHigherPeak(t *testing.T) {
	repo := newTestStore(t).Alerts()

	e := &AlertEvent{PeakSpan: 300, Unit: "Meter"}
	require.NoError(t, repo.Create(e))
	require.NoError(t, repo.End(e.ID, time.Now(), 100))

	got, err := repo.GetByID(e.ID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, got.PeakSpan)
}

func TestAlertRepository_GetByID_NotFound(t *testing.T) {
	repo := newTestStore(t).Alerts()

	_, err := repo.GetByID("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAlertRepository_List(t *testing.T) {
	repo := newTestStore(t).Alerts()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(&AlertEvent{
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			PeakSpan:  float64(i),
			Unit:      "Meter",
		}))
	}

	all, err := repo.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 2.0, all[0].PeakSpan, "newest first")
	assert.Equal(t, 0.0, all[2].PeakSpan)

	limited, err := repo.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestAlertRepository_CloseActive(t *testing.T) {
	repo := newTestStore(t).Alerts()

	open := &AlertEvent{Unit: "Meter"}
	closed := &AlertEvent{Unit: "Meter"}
	require.NoError(t, repo.Create(open))
	require.NoError(t, repo.Create(closed))
	require.NoError(t, repo.End(closed.ID, time.Now(), 0))

	n, err := repo.CloseActive(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(open.ID)
	require.NoError(t, err)
	assert.False(t, got.Active())
}
