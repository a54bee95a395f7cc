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

// Package accel manages exclusive leases on a shared hardware accelerator.
//
// One ResourceManager guards one accelerator. Tasks queue FIFO for the
// lease; at most one task holds it at a time. The manager is an explicit
// injectable instance rather than a process-wide singleton so tests can
// substitute their own.
package accel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	acquireCounter  metric.Int64Counter
	releaseCounter  metric.Int64Counter
	waitSecondsHist metric.Float64Histogram
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/accelwriter/internal/accel")

	var err error
	acquireCounter, err = meter.Int64Counter(
		"accelwriter.accel.acquires",
		metric.WithDescription("Number of accelerator lease acquisitions"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create accel.acquires counter: %w", err))
	}

	releaseCounter, err = meter.Int64Counter(
		"accelwriter.accel.releases",
		metric.WithDescription("Number of accelerator lease releases"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create accel.releases counter: %w", err))
	}

	waitSecondsHist, err = meter.Float64Histogram(
		"accelwriter.accel.wait_seconds",
		metric.WithDescription("Time tasks spent waiting for the accelerator lease"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create accel.wait_seconds histogram: %w", err))
	}
}

// waiter is one queued task. ready is closed when the lease is handed over;
// granted distinguishes handover from cancellation under the lock.
type waiter struct {
	task    string
	ready   chan struct{}
	granted bool
}

// ResourceManager hands out the exclusive accelerator lease, FIFO.
type ResourceManager struct {
	mu      sync.Mutex
	held    bool
	holder  string
	waiters []*waiter

	acquires atomic.Uint64
	releases atomic.Uint64
}

// NewResourceManager creates a manager for one accelerator.
func NewResourceManager() *ResourceManager {
	return &ResourceManager{}
}

// Acquire blocks until the calling task holds the lease, or ctx is done.
// Waiters are served in arrival order. A task must not call Acquire while
// already holding the lease.
func (m *ResourceManager) Acquire(ctx context.Context, task string) error {
	start := time.Now()

	m.mu.Lock()
	if m.held && m.holder == task {
		m.mu.Unlock()
		return fmt.Errorf("accel: task %s already holds the lease", task)
	}
	if !m.held && len(m.waiters) == 0 {
		m.held = true
		m.holder = task
		m.mu.Unlock()
		m.acquires.Add(1)
		acquireCounter.Add(ctx, 1)
		waitSecondsHist.Record(ctx, time.Since(start).Seconds())
		return nil
	}
	w := &waiter{task: task, ready: make(chan struct{})}
	m.waiters = append(m.waiters, w)
	m.mu.Unlock()

	select {
	case <-w.ready:
		m.acquires.Add(1)
		acquireCounter.Add(ctx, 1)
		waitSecondsHist.Record(ctx, time.Since(start).Seconds())
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		if w.granted {
			// The lease was handed to us as the context fired. Pass it on so
			// the grant is not lost.
			m.handoverLocked()
			m.mu.Unlock()
			return ctx.Err()
		}
		m.removeWaiterLocked(w)
		m.mu.Unlock()
		return ctx.Err()
	}
}

// ReleaseIfHeld releases the lease if the given task holds it, waking the
// next waiter. Releasing a lease the task does not hold is a no-op, not an
// error: failure-cleanup paths release again after the normal path already
// did, and that must never unblock extra waiters.
func (m *ResourceManager) ReleaseIfHeld(task string) {
	m.mu.Lock()
	if !m.held || m.holder != task {
		m.mu.Unlock()
		return
	}
	m.handoverLocked()
	m.mu.Unlock()

	m.releases.Add(1)
	releaseCounter.Add(context.Background(), 1)
}

// handoverLocked passes the lease to the next waiter, or frees it.
func (m *ResourceManager) handoverLocked() {
	if len(m.waiters) == 0 {
		m.held = false
		m.holder = ""
		return
	}
	next := m.waiters[0]
	m.waiters = m.waiters[1:]
	m.holder = next.task
	next.granted = true
	close(next.ready)
}

func (m *ResourceManager) removeWaiterLocked(w *waiter) {
	for i, q := range m.waiters {
		if q == w {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}

// Holder returns the current lease holder, if any.
func (m *ResourceManager) Holder() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holder, m.held
}

// Acquires returns the total number of successful acquisitions.
func (m *ResourceManager) Acquires() uint64 {
	return m.acquires.Load()
}

// Releases returns the total number of effective releases.
func (m *ResourceManager) Releases() uint64 {
	return m.releases.Load()
}
