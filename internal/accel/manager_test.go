// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package accel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	m := NewResourceManager()
	ctx := context.Background()

	require.NoError(t, m.Acquire(ctx, "task-1"))

	holder, held := m.Holder()
	require.True(t, held)
	require.Equal(t, "task-1", holder)

	m.ReleaseIfHeld("task-1")

	_, held = m.Holder()
	require.False(t, held)
	require.Equal(t, uint64(1), m.Acquires())
	require.Equal(t, uint64(1), m.Releases())
}

func TestReleaseIdempotent(t *testing.T) {
	m := NewResourceManager()
	ctx := context.Background()

	// Releasing a lease that was never acquired is a no-op.
	m.ReleaseIfHeld("task-1")
	require.Equal(t, uint64(0), m.Releases())

	require.NoError(t, m.Acquire(ctx, "task-1"))
	m.ReleaseIfHeld("task-1")
	m.ReleaseIfHeld("task-1")
	require.Equal(t, uint64(1), m.Releases())

	// The lease is still acquirable after the double release.
	require.NoError(t, m.Acquire(ctx, "task-2"))
	m.ReleaseIfHeld("task-2")
}

func TestReleaseByNonHolderIsNoOp(t *testing.T) {
	m := NewResourceManager()
	ctx := context.Background()

	require.NoError(t, m.Acquire(ctx, "task-1"))
	m.ReleaseIfHeld("task-2")

	holder, held := m.Holder()
	require.True(t, held)
	require.Equal(t, "task-1", holder)
	m.ReleaseIfHeld("task-1")
}

func TestFIFOOrder(t *testing.T) {
	m := NewResourceManager()
	ctx := context.Background()

	require.NoError(t, m.Acquire(ctx, "task-a"))

	acquired := make(chan string, 2)
	ready := func(task string) chan struct{} {
		started := make(chan struct{})
		go func() {
			close(started)
			require.NoError(t, m.Acquire(ctx, task))
			acquired <- task
		}()
		return started
	}

	<-ready("task-b")
	// Give task-b time to enqueue before task-c so the FIFO order is fixed.
	time.Sleep(20 * time.Millisecond)
	<-ready("task-c")
	time.Sleep(20 * time.Millisecond)

	m.ReleaseIfHeld("task-a")
	require.Equal(t, "task-b", <-acquired)

	m.ReleaseIfHeld("task-b")
	require.Equal(t, "task-c", <-acquired)

	m.ReleaseIfHeld("task-c")
	require.Equal(t, uint64(3), m.Acquires())
	require.Equal(t, uint64(3), m.Releases())
}

func TestDoubleReleaseDoesNotOverUnblock(t *testing.T) {
	m := NewResourceManager()
	ctx := context.Background()

	require.NoError(t, m.Acquire(ctx, "task-a"))

	acquired := make(chan string, 2)
	for _, task := range []string{"task-b", "task-c"} {
		go func() {
			require.NoError(t, m.Acquire(ctx, task))
			acquired <- task
		}()
		time.Sleep(20 * time.Millisecond)
	}

	m.ReleaseIfHeld("task-a")
	m.ReleaseIfHeld("task-a")

	require.Equal(t, "task-b", <-acquired)

	// task-c must still be waiting: the duplicate release was a no-op.
	select {
	case task := <-acquired:
		t.Fatalf("task %s acquired the lease without a release", task)
	case <-time.After(50 * time.Millisecond):
	}

	m.ReleaseIfHeld("task-b")
	require.Equal(t, "task-c", <-acquired)
	m.ReleaseIfHeld("task-c")
}

func TestAcquireInterruptible(t *testing.T) {
	m := NewResourceManager()
	ctx := context.Background()

	require.NoError(t, m.Acquire(ctx, "task-a"))

	waitCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Acquire(waitCtx, "task-b")
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	require.ErrorIs(t, <-errCh, context.Canceled)

	// The cancelled waiter left no residual queue state.
	m.ReleaseIfHeld("task-a")
	_, held := m.Holder()
	require.False(t, held)

	require.NoError(t, m.Acquire(ctx, "task-c"))
	m.ReleaseIfHeld("task-c")
}

func TestAcquireWhileHolding(t *testing.T) {
	m := NewResourceManager()
	ctx := context.Background()

	require.NoError(t, m.Acquire(ctx, "task-1"))
	require.Error(t, m.Acquire(ctx, "task-1"))
	m.ReleaseIfHeld("task-1")
}
