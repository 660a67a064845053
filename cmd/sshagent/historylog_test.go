package main

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTempHistoryLog(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(prev) })
}

func TestAppendAndReadHistoryLogRoundTrips(t *testing.T) {
	withTempHistoryLog(t)

	require.NoError(t, appendHistoryEntry(historyEntry{TaskID: "t1", Goal: "install nginx", Success: true}))
	require.NoError(t, appendHistoryEntry(historyEntry{TaskID: "t2", Goal: "patch kernel", Success: false}))

	entries, err := readHistoryLog()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "t1", entries[0].TaskID)
	assert.Equal(t, "t2", entries[1].TaskID)
	assert.False(t, entries[1].Success)
}

func TestReadHistoryLogMissingFileReturnsEmpty(t *testing.T) {
	withTempHistoryLog(t)

	entries, err := readHistoryLog()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteHistoryLogOverwritesPriorContent(t *testing.T) {
	withTempHistoryLog(t)

	require.NoError(t, appendHistoryEntry(historyEntry{TaskID: "stale", CompletedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, writeHistoryLog([]historyEntry{{TaskID: "fresh", CompletedAt: time.Now()}}))

	entries, err := readHistoryLog()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].TaskID)
}
