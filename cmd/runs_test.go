package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rjrizani/zyte-api-training/internal/model"
	"github.com/rjrizani/zyte-api-training/internal/monitoring"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			Recipe:      "quotes",
			Status:      model.RunStatusCompleted,
			Reason:      "no_next_locator",
			RecordCount: 100,
			Steps:       10,
			CreatedAt:   now,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Recipe:    "nike-wall",
			Status:    model.RunStatusRunning,
			CreatedAt: now.Add(-1 * time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "RECIPE")
	assert.Contains(t, output, "REASON")
	assert.Contains(t, output, "quotes")
	assert.Contains(t, output, "completed")
	assert.Contains(t, output, "no_next_locator")
	assert.Contains(t, output, "nike-wall")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, &monitoring.MetricsSnapshot{
		RunsTotal:     5,
		RunsFinished:  4,
		RunsRunning:   1,
		StaleRuns:     1,
		ByReason:      map[string]int{"no_next_locator": 3, "retries_exhausted": 1},
		FailRate:      0.25,
		RecordsTotal:  120,
		AvgRecords:    30,
		AvgSteps:      4,
		AvgDurSecs:    12.5,
		LookbackHours: 24,
	})

	out := buf.String()
	assert.Contains(t, out, "Total runs:")
	assert.Contains(t, out, "no_next_locator:")
	assert.Contains(t, out, "retries_exhausted:")
	assert.Contains(t, out, "Stale:")
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "12.5s")
}
