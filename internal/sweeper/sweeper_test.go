package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingExpirer struct {
	calls atomic.Int64
	err   error
}

func (c *countingExpirer) RevokeExpiredInvitationSet(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestSweeper(t *testing.T) {
	t.Run("first sweep is synchronous", func(t *testing.T) {
		expirer := &countingExpirer{}

		sw := New(context.Background(), expirer, time.Hour)
		defer sw.Stop()

		require.Equal(t, int64(1), expirer.calls.Load())
	})

	t.Run("runs on every tick", func(t *testing.T) {
		expirer := &countingExpirer{}

		sw := New(context.Background(), expirer, 10*time.Millisecond)
		defer sw.Stop()

		require.Eventually(t, func() bool {
			return expirer.calls.Load() >= 3
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("errors do not stop the loop", func(t *testing.T) {
		expirer := &countingExpirer{err: errors.New("database unavailable")}

		sw := New(context.Background(), expirer, 10*time.Millisecond)
		defer sw.Stop()

		require.Eventually(t, func() bool {
			return expirer.calls.Load() >= 2
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("stop halts sweeping", func(t *testing.T) {
		expirer := &countingExpirer{}

		sw := New(context.Background(), expirer, 5*time.Millisecond)
		sw.Stop()

		stopped := expirer.calls.Load()
		time.Sleep(30 * time.Millisecond)
		require.Equal(t, stopped, expirer.calls.Load())
	})

	t.Run("parent context cancellation stops the loop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		sw := New(ctx, &countingExpirer{}, time.Hour)

		cancel()

		done := make(chan struct{})
		go func() {
			sw.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("sweeper did not stop after context cancellation")
		}
	})
}
