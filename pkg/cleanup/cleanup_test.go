package cleanup

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solyn-ai/solyn/pkg/config"
)

type fakePruner struct {
	calls atomic.Int32
	err   error
}

func (f *fakePruner) DeleteExpired(_ context.Context) (int64, error) {
	f.calls.Add(1)
	return 2, f.err
}

type fakeReleaser struct {
	calls     atomic.Int32
	olderThan atomic.Int64
}

func (f *fakeReleaser) ReleaseStale(_ context.Context, olderThan time.Duration) (int64, error) {
	f.calls.Add(1)
	f.olderThan.Store(int64(olderThan))
	return 1, nil
}

func TestRunOncePrunesAndReleases(t *testing.T) {
	pruner := &fakePruner{}
	releaser := &fakeReleaser{}
	cfg := config.DefaultCleanupConfig()

	New(pruner, releaser, cfg).RunOnce(context.Background())

	assert.Equal(t, int32(1), pruner.calls.Load())
	assert.Equal(t, int32(1), releaser.calls.Load())
	assert.Equal(t, int64(cfg.StaleJobAge), releaser.olderThan.Load())
}

func TestRunOnceContinuesPastPrunerFailure(t *testing.T) {
	pruner := &fakePruner{err: fmt.Errorf("db down")}
	releaser := &fakeReleaser{}

	New(pruner, releaser, config.DefaultCleanupConfig()).RunOnce(context.Background())

	assert.Equal(t, int32(1), releaser.calls.Load())
}

func TestStartRunsImmediatePassAndStops(t *testing.T) {
	pruner := &fakePruner{}
	releaser := &fakeReleaser{}
	cfg := config.DefaultCleanupConfig()
	cfg.Interval = 10 * time.Millisecond

	c := New(pruner, releaser, cfg)
	c.Start()

	require.Eventually(t, func() bool {
		return pruner.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	c.Stop()
	settled := pruner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, pruner.calls.Load())
}
