package jobs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIntegrationSweepTaskPayload(t *testing.T) {
	task, err := NewIntegrationSweepTask(3, 14)
	require.NoError(t, err)
	require.Equal(t, TaskIntegrationSweep, task.Type())

	var payload IntegrationSweepPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.EqualValues(t, 3, payload.OrgID)
	require.Equal(t, 14, payload.WindowDays)
}

func TestIntegrationSweepWindow(t *testing.T) {
	now := time.Date(2024, 4, 10, 15, 30, 0, 0, time.UTC)

	from, to := IntegrationSweepPayload{WindowDays: 7}.Window(now)
	require.Equal(t, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), to)
	require.Equal(t, time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC), from)

	// explicit run date takes precedence over the clock
	from, to = IntegrationSweepPayload{WindowDays: 3, RunDate: "2024-02-01"}.Window(now)
	require.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), to)
	require.Equal(t, time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC), from)

	// zero window falls back to the default
	from, to = IntegrationSweepPayload{}.Window(now)
	require.Equal(t, 7*24*time.Hour, to.Sub(from))
}
