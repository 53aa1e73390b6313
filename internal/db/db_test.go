package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := New(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	d, err := New(path)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = New(path)
	require.NoError(t, err)
	defer d.Close()

	var version int
	require.NoError(t, d.conn.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version))
	assert.Equal(t, 1, version)
	assert.Equal(t, path, d.Path())
}

func TestRecordAndListScrapes(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute).Truncate(time.Millisecond)

	ok := &Scrape{
		Target:      "esxi01",
		StartedAt:   base,
		Duration:    1500 * time.Millisecond,
		Status:      StatusOK,
		Metrics:     42,
		SmartErrors: 1,
	}
	require.NoError(t, d.RecordScrape(ctx, ok))
	assert.NotEmpty(t, ok.ID)

	failed := &Scrape{
		Target:     "esxi01",
		StartedAt:  base.Add(30 * time.Second),
		Duration:   30 * time.Second,
		Status:     StatusFailed,
		ErrorClass: "timeout",
		Message:    "remote command timed out",
	}
	require.NoError(t, d.RecordScrape(ctx, failed))

	other := &Scrape{Target: "esxi02", StartedAt: base.Add(10 * time.Second), Status: StatusOK}
	require.NoError(t, d.RecordScrape(ctx, other))

	all, err := d.RecentScrapes(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{failed.ID, other.ID, ok.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	got, err := d.RecentScrapes(ctx, "esxi01", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, StatusFailed, got[0].Status)
	assert.Equal(t, "timeout", got[0].ErrorClass)
	assert.Equal(t, "remote command timed out", got[0].Message)

	assert.Equal(t, ok.ID, got[1].ID)
	assert.True(t, base.Equal(got[1].StartedAt))
	assert.Equal(t, 1500*time.Millisecond, got[1].Duration)
	assert.Equal(t, 42, got[1].Metrics)
	assert.Equal(t, 1, got[1].SmartErrors)
	assert.Empty(t, got[1].ErrorClass)

	limited, err := d.RecentScrapes(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPruneScrapes(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.RecordScrape(ctx, &Scrape{Target: "h", StartedAt: time.Now().Add(-48 * time.Hour), Status: StatusOK}))
	require.NoError(t, d.RecordScrape(ctx, &Scrape{Target: "h", StartedAt: time.Now(), Status: StatusOK}))

	n, err := d.PruneScrapes(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := d.RecentScrapes(ctx, "h", 0)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
