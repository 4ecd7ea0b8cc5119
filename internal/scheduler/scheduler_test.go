package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Foundation42/entrained.ai-engram/pkg/types"
)

func TestRunAllNowJournalsEachJob(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	expired := memoryFixture("mem-sched001", []string{"alice"}, 60, time.Now().Add(-2*time.Hour).UTC())
	require.NoError(t, s.Put(ctx, expired))

	decaying := memoryFixture("mem-sched002", []string{"bob"}, 0, time.Now().Add(-60*24*time.Hour).UTC())
	decaying.Retention.DecayFunction = types.DecayLinear
	require.NoError(t, s.Put(ctx, decaying))

	journal, err := OpenJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer journal.Close()

	sched, err := New(s, journal, Config{DailyCron: "@daily", WeeklyCron: "@weekly", MonthlyCron: "@monthly"}, nil)
	require.NoError(t, err)

	sched.RunAllNow(ctx)

	dailyRuns, err := journal.Recent(ctx, "daily_expire", 1)
	require.NoError(t, err)
	require.Len(t, dailyRuns, 1)
	assert.Equal(t, 1, dailyRuns[0].Deleted)

	monthlyRuns, err := journal.Recent(ctx, "monthly_decay", 1)
	require.NoError(t, err)
	require.Len(t, monthlyRuns, 1)
	assert.Equal(t, 1, monthlyRuns[0].Demoted)
}
