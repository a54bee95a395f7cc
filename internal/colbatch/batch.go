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

// Package colbatch wraps accelerator-resident column buffers as a batch
// with single-owner release semantics.
package colbatch

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
)

// Batch is a set of same-length column buffers plus a row count.
//
// A Batch is exclusively owned by the task that produced it until handed to
// a writer, which then becomes the owner and must Release it exactly once on
// every code path. Release is idempotent so failure-cleanup paths may call it
// again without double-freeing the underlying buffers.
type Batch struct {
	rec      arrow.Record
	released atomic.Bool
}

// New takes ownership of rec. The caller must not Release rec itself
// afterwards.
func New(rec arrow.Record) *Batch {
	return &Batch{rec: rec}
}

// Record returns the underlying column buffers. Only valid before Release.
func (b *Batch) Record() arrow.Record {
	return b.rec
}

// NumRows returns the row count of the batch.
func (b *Batch) NumRows() int64 {
	return b.rec.NumRows()
}

// Release frees the column buffers. The first call releases; subsequent
// calls are no-ops.
func (b *Batch) Release() {
	if b.released.CompareAndSwap(false, true) {
		b.rec.Release()
	}
}

// Released reports whether the batch buffers have been freed.
func (b *Batch) Released() bool {
	return b.released.Load()
}
