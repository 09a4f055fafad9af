package remote

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingPush(n *atomic.Int32) PushFunc {
	return func(context.Context) error {
		n.Add(1)
		return nil
	}
}

func TestAutoSyncer_CoalescesBurst(t *testing.T) {
	var pushes atomic.Int32
	a := NewAutoSyncer(20*time.Millisecond, countingPush(&pushes), nil)

	for i := 0; i < 50; i++ {
		a.Notify()
	}

	require.Eventually(t, func() bool { return pushes.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), pushes.Load(), "one push per burst")
	assert.False(t, a.Pending())
}

func TestAutoSyncer_SeparateBurstsPushSeparately(t *testing.T) {
	var pushes atomic.Int32
	a := NewAutoSyncer(10*time.Millisecond, countingPush(&pushes), nil)

	a.Notify()
	require.Eventually(t, func() bool { return pushes.Load() == 1 }, time.Second, 5*time.Millisecond)

	a.Notify()
	require.Eventually(t, func() bool { return pushes.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestAutoSyncer_CloseFlushesPending(t *testing.T) {
	var pushes atomic.Int32
	a := NewAutoSyncer(time.Hour, countingPush(&pushes), nil)

	a.Notify()
	assert.True(t, a.Pending())
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, int32(1), pushes.Load())

	a.Notify()
	assert.False(t, a.Pending(), "closed syncer ignores notifications")
}

func TestAutoSyncer_FlushWithoutChangesDoesNothing(t *testing.T) {
	var pushes atomic.Int32
	a := NewAutoSyncer(time.Hour, countingPush(&pushes), nil)

	require.NoError(t, a.Flush(context.Background()))
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, int32(0), pushes.Load())
}

func TestAutoSyncer_FlushReturnsPushError(t *testing.T) {
	boom := errors.New("offline")
	a := NewAutoSyncer(time.Hour, func(context.Context) error { return boom }, nil)

	a.Notify()
	assert.ErrorIs(t, a.Flush(context.Background()), boom)
	assert.False(t, a.Pending(), "failed pushes are not retried")
}

func TestAutoSyncer_PushesDoNotOverlap(t *testing.T) {
	var active, maxActive, pushes atomic.Int32
	release := make(chan struct{})

	a := NewAutoSyncer(5*time.Millisecond, func(context.Context) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		<-release
		active.Add(-1)
		pushes.Add(1)
		return nil
	}, nil)

	a.Notify()
	require.Eventually(t, func() bool { return active.Load() == 1 }, time.Second, time.Millisecond)

	// A change during the push schedules another one after it.
	a.Notify()
	time.Sleep(30 * time.Millisecond)
	close(release)

	require.Eventually(t, func() bool { return pushes.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), maxActive.Load())
}
