package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ParraLuca/AlertMe/models"
)

func intp(n int) *int { return &n }

func sampleResults() []models.TargetResult {
	return []models.TargetResult{
		{Site: "immokh", Observed: 12, NewItems: []models.ListingItem{
			{ID: "1", Price: intp(200000)},
			{ID: "2", Price: intp(300000)},
			{ID: "3"},
		}},
		{Site: "immoweb", Observed: 30, NewItems: []models.ListingItem{
			{ID: "4", Price: intp(100000)},
		}},
		{Site: "immotoma", Seed: true, Observed: 8},
		{Site: "immokh", Err: errors.New("boom")},
	}
}

func TestBuildSummaryStats(t *testing.T) {
	stats := BuildSummaryStats(sampleResults())

	assert.Equal(t, 4, stats.TargetsRun)
	assert.Equal(t, 1, stats.TargetsFailed)
	assert.Equal(t, 1, stats.TargetsSeeded)
	assert.Equal(t, 50, stats.TotalObserved)
	assert.Equal(t, 4, stats.TotalNew)
	assert.Equal(t, 100000, stats.MinimumPrice)
	assert.Equal(t, 300000, stats.MaximumPrice)
	assert.Equal(t, 200000, stats.AveragePrice)

	require.Len(t, stats.NewPerSite, 3)
	assert.Equal(t, SiteCount{Site: "immokh", Count: 3}, stats.NewPerSite[0])
}

func TestBuildSummaryStatsEmpty(t *testing.T) {
	stats := BuildSummaryStats(nil)
	assert.Equal(t, 0, stats.TargetsRun)
	assert.Equal(t, 0, stats.AveragePrice)
}

func TestWriteRunReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "last_run.json")

	total, err := WriteRunReport(path, "run-1", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), sampleResults())
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, `"run_id": "run-1"`)
	assert.Contains(t, s, `"started_utc": "2024-03-01T12:00:00Z"`)
	assert.Contains(t, s, "immokh: boom")
}
