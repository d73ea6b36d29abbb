package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onepay-cm/onepay/internal/models"
)

func TestDispatchStats(t *testing.T) {
	records := []models.AuditRecord{
		{MessageClass: "ProcessTransactionMessage", Success: true, Duration: 100 * time.Millisecond},
		{MessageClass: "ProcessTransactionMessage", Success: false, Duration: 300 * time.Millisecond},
		{MessageClass: "SyncBalanceMessage", Success: true, Duration: 50 * time.Millisecond},
	}

	stats := dispatchStats(records)

	process := stats["ProcessTransactionMessage"]
	require.NotNil(t, process)
	assert.Equal(t, 2, process.count)
	assert.Equal(t, 1, process.success)
	assert.InDelta(t, 50.0, process.successRate(), 0.01)
	assert.Equal(t, 400*time.Millisecond, process.total)
	assert.Equal(t, 300*time.Millisecond, process.max)

	sync := stats["SyncBalanceMessage"]
	require.NotNil(t, sync)
	assert.Equal(t, 1, sync.count)
	assert.InDelta(t, 100.0, sync.successRate(), 0.01)
}

func TestDispatchStatsEmpty(t *testing.T) {
	assert.Empty(t, dispatchStats(nil))
}
