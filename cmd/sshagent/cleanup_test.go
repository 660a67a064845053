package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupCommandDropsOnlyEntriesOlderThanDays(t *testing.T) {
	withTempHistoryLog(t)

	require.NoError(t, writeHistoryLog([]historyEntry{
		{TaskID: "old", CompletedAt: time.Now().Add(-40 * 24 * time.Hour)},
		{TaskID: "recent", CompletedAt: time.Now().Add(-1 * time.Hour)},
	}))

	require.NoError(t, cleanupCmd.Flags().Set("days", "30"))
	require.NoError(t, cleanupCmd.RunE(cleanupCmd, nil))

	entries, err := readHistoryLog()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "recent", entries[0].TaskID)
}
