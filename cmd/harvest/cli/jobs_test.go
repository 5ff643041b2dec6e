package cli

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/harvest-erp/harvest-erp/jobs"
	_ "github.com/harvest-erp/harvest-erp/testing"
)

func newTestCLI(t *testing.T) *JobsCLI {
	t.Helper()
	mr := miniredis.RunT(t)
	ops, err := NewJobsCLI(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, ops.Close())
	})
	return ops
}

func TestTriggerEnqueuesProducibleWarmup(t *testing.T) {
	ops := newTestCLI(t)

	info, err := ops.Trigger(context.Background(), jobs.TaskProducibleWarmup)
	require.NoError(t, err)
	require.Equal(t, jobs.TaskProducibleWarmup, info.Type)
	require.Equal(t, jobs.QueueDefault, info.Queue)
}

func TestTriggerEnqueuesIdempotencyCleanup(t *testing.T) {
	ops := newTestCLI(t)

	info, err := ops.Trigger(context.Background(), jobs.TaskIdempotencyCleanup)
	require.NoError(t, err)
	require.Equal(t, jobs.TaskIdempotencyCleanup, info.Type)
}

func TestTriggerRejectsUnknownJob(t *testing.T) {
	ops := newTestCLI(t)

	_, err := ops.Trigger(context.Background(), "reports:nightly")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported job")
}

func TestJobsCLIRequiresClient(t *testing.T) {
	var ops *JobsCLI

	_, err := ops.Trigger(context.Background(), jobs.TaskProducibleWarmup)
	require.Error(t, err)

	_, err = ops.InspectQueue(context.Background())
	require.Error(t, err)
}
